package main

import (
	"context"
	"io"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
)

type PhotoAPIService interface {
	Create(context.Context, *model.PhotoCreateData) (*model.Photo, error)
	Get(ctx context.Context, id string) (*model.Photo, error)
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error)
	Delete(ctx context.Context, id string) error
	ReviveOrphans(ctx context.Context, limit int)
}

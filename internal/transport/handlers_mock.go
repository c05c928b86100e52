package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/gin-gonic/gin"
)

type mockPhotoService struct {
	createFn     func(ctx context.Context, d *model.PhotoCreateData) (*model.Photo, error)
	getFn        func(ctx context.Context, id string) (*model.Photo, error)
	deleteFn     func(ctx context.Context, id string) error
	loadResultFn func(ctx context.Context, id string) (io.ReadCloser, string, error)
	getListFn    func(ctx context.Context, req *model.ListRequest) ([]model.Photo, error)
}

func (m *mockPhotoService) Create(ctx context.Context, d *model.PhotoCreateData) (*model.Photo, error) {
	return m.createFn(ctx, d)
}

func (m *mockPhotoService) Get(ctx context.Context, id string) (*model.Photo, error) {
	return m.getFn(ctx, id)
}

func (m *mockPhotoService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func (m *mockPhotoService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadResultFn(ctx, id)
}

func (m *mockPhotoService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
	return m.getListFn(ctx, req)
}

func init() {
	gin.SetMode(gin.TestMode)
}

// Package service provides business-logic for the app
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/mwlogger"
	"github.com/UnendingLoop/PhotoSigner/internal/repository"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/retry"
)

const (
	defaultSourcePrefix = "source/"
	defaultResultPrefix = "result/"
)

type PhotoService struct {
	repo            repository.PhotoRepo
	publisher       TaskPublisher
	storage         PhotoStorage
	srcKeyPrefix    string
	resultKeyPrefix string
}

// NewPhotoService reads the object key prefixes from SOURCE_KEY and RESULT_KEY.
func NewPhotoService(cfg *config.Config, repo repository.PhotoRepo, pub TaskPublisher, strg PhotoStorage) *PhotoService {
	svc := &PhotoService{
		repo:            repo,
		publisher:       pub,
		storage:         strg,
		srcKeyPrefix:    defaultSourcePrefix,
		resultKeyPrefix: defaultResultPrefix,
	}
	if cfg != nil {
		if v := cfg.GetString("SOURCE_KEY"); v != "" {
			svc.srcKeyPrefix = v
		}
		if v := cfg.GetString("RESULT_KEY"); v != "" {
			svc.resultKeyPrefix = v
		}
	}
	return svc
}

func (c PhotoService) ResultPrefix() string {
	return c.resultKeyPrefix
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// PhotoStorage - контракт для работы с хранилищем
type PhotoStorage interface {
	Delete(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
	Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

func (c PhotoService) Create(ctx context.Context, photoData *model.PhotoCreateData) (*model.Photo, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newPhoto := &model.Photo{}

	// Валидируем исходник и опции подписи
	if err := validateNormalizePhotoInfo(photoData, newPhoto); err != nil {
		return nil, err
	}

	// генерируем UUID
	newPhoto.UID = uuid.New()

	// кладем в хранилище сорсник
	newPhoto.SourceKey = c.srcKeyPrefix + newPhoto.UID.String() + model.GetImageFileExt[photoData.ImgContentType]
	if err := c.storage.Put(ctx, newPhoto.SourceKey, photoData.ImgSize, photoData.ImgContentType, photoData.Img); err != nil {
		logger.Error().Err(err).Msg("Failed to save source photo in Storage")
		return nil, model.ErrCommon500
	}

	// ставим статус и таймстамп
	newPhoto.Status = model.StatusCreated
	now := time.Now().UTC()
	newPhoto.CreatedAt = &now
	newPhoto.UpdatedAt = &now

	// шлем в базу
	if err := c.repo.Create(ctx, newPhoto); err != nil {
		logger.Error().Err(err).Msg("Failed to create photo task in DB")
		c.dropObject(ctx, newPhoto.SourceKey)
		return nil, model.ErrCommon500
	}

	// кладем в очередь задач(в кафку); если не вышло - задачу подберет ReviveOrphans
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(newPhoto.UID.String()), nil); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish photo %q to task-queue", newPhoto.UID))
		return nil, model.ErrCommon500
	}
	return newPhoto, nil
}

func (c PhotoService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch photos list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c PhotoService) Get(ctx context.Context, id string) (*model.Photo, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		return nil, c.repoErr(ctx, err, fmt.Sprintf("Failed to fetch photo %q from DB", id))
	}

	return res, nil
}

func (c PhotoService) LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if res.Status != model.StatusDone {
		return nil, "", model.ErrResultNotReady
	}

	// достаем из хранилища
	data, cType, err := c.storage.Get(ctx, res.ResultKey)
	if err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch signed photo %q from Storage", id))
		return nil, "", model.ErrCommon500
	}
	return data, cType, nil
}

func (c PhotoService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)

	// читаем из базы
	res, err := c.Get(ctx, id)
	if err != nil {
		return err
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		return c.repoErr(ctx, err, "Failed to delete photo from DB")
	}

	// удаляем из хранилища сорсник и результат(если он есть)
	if err := c.storage.Delete(ctx, res.SourceKey); err != nil {
		logger.Error().Err(err).Msg("Failed to delete source photo from Storage")
		return model.ErrCommon500
	}
	if res.ResultKey != "" {
		if err := c.storage.Delete(ctx, res.ResultKey); err != nil {
			logger.Error().Err(err).Msg("Failed to delete signed photo from Storage")
			return model.ErrCommon500
		}
	}

	return nil
}

func (c PhotoService) UpdateStatus(ctx context.Context, id string, newStat model.Status) error {
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}
	if !model.StatusMap[newStat] {
		return model.ErrIncorrectStatus
	}

	if err := c.repo.UpdateStatus(ctx, id, newStat); err != nil {
		return c.repoErr(ctx, err, "Failed to update photo status in DB")
	}

	return nil
}

func (c PhotoService) SaveResult(ctx context.Context, input *model.Photo) error {
	t := time.Now().UTC()
	input.UpdatedAt = &t
	if err := c.repo.SaveResult(ctx, input); err != nil {
		return c.repoErr(ctx, err, "Failed to save signing result in DB")
	}

	return nil
}

func (c PhotoService) ReviveOrphans(ctx context.Context, limit int) {
	logger := mwlogger.LoggerFromContext(ctx)

	orphans, err := c.repo.FetchOrphans(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load orphans from DB")
		return
	}

	for _, v := range orphans {
		if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(v), nil); err != nil {
			logger.Error().Err(err).Str("uid", v).Msg("Failed to publish orphan to queue")
		}
	}
	if len(orphans) > 0 {
		logger.Info().Int("count", len(orphans)).Msg("Orphan tasks re-published")
	}
}

// repoErr keeps not-found visible to the caller and hides everything else behind a 500.
func (c PhotoService) repoErr(ctx context.Context, err error, msg string) error {
	if errors.Is(err, model.ErrPhotoNotFound) {
		return model.ErrPhotoNotFound // 404
	}
	logger := mwlogger.LoggerFromContext(ctx)
	logger.Error().Err(err).Msg(msg)
	return model.ErrCommon500
}

func (c PhotoService) dropObject(ctx context.Context, key string) {
	if err := c.storage.Delete(ctx, key); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("key", key).Msg("Failed to clean up orphan object in Storage")
	}
}

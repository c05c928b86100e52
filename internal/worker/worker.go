// Package worker consumes signing tasks from the queue and signs the uploaded photos
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/mwlogger"
	"github.com/UnendingLoop/PhotoSigner/internal/placement"
	"github.com/UnendingLoop/PhotoSigner/internal/service"
	"github.com/UnendingLoop/PhotoSigner/internal/signer"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sourcegraph/conc"
	"github.com/wb-go/wbf/zlog"
)

var errInProgress = errors.New("task is already in progress")

type PhotoWorkerService interface {
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, res *model.Photo) error
	Get(ctx context.Context, id string) (*model.Photo, error)
}

// Committer acknowledges a consumed message.
type Committer interface {
	Commit(ctx context.Context, msg kafkago.Message) error
}

// PhotoSigner signs an encoded photo.
type PhotoSigner interface {
	SignStream(r io.Reader, cfg signer.Config, maxSide int) (*signer.Signed, error)
}

type Worker struct {
	storage      service.PhotoStorage
	service      PhotoWorkerService
	queue        <-chan kafkago.Message
	consumer     Committer
	drawer       PhotoSigner
	resultPrefix string
}

func NewWorkerInstance(strg service.PhotoStorage, svc PhotoWorkerService, q <-chan kafkago.Message, cons Committer, drawer PhotoSigner, resPr string) *Worker {
	return &Worker{storage: strg, service: svc, queue: q, consumer: cons, drawer: drawer, resultPrefix: resPr}
}

// Start runs StartWorker in the background. The returned wait blocks until the loop has
// returned, including the task that was in flight when ctx got cancelled.
func (w *Worker) Start(ctx context.Context) (wait func()) {
	var wg conc.WaitGroup
	wg.Go(func() { w.StartWorker(ctx) })
	return wg.Wait
}

func (w *Worker) StartWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.queue:
			if !ok {
				zlog.Logger.Info().Msg("Queue channel closed, stopping worker...")
				return
			}
			w.handle(ctx, msg)
		}
	}
}

// handle processes one message and commits it unless the failure is worth a redelivery.
func (w *Worker) handle(ctx context.Context, msg kafkago.Message) {
	id := string(msg.Key)
	logger := zlog.Logger.With().Str("uid", id).Logger()
	taskCtx := mwlogger.WithLogger(ctx, logger)

	err := w.initProcessor(taskCtx, id)
	if err != nil && !final(err) {
		logger.Error().Err(err).Msg("Task failed, leaving message uncommitted")
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Task dropped")
	}

	if err := w.consumer.Commit(ctx, msg); err != nil {
		logger.Error().Err(err).Msg("Failed to commit queue-message")
	}
}

// final errors will not change on redelivery.
func final(err error) bool {
	return errors.Is(err, model.ErrPhotoNotFound) ||
		errors.Is(err, model.ErrIncorrectID) ||
		errors.Is(err, model.ErrIncorrectOptions) ||
		errors.Is(err, model.ErrUnsupportedFormat)
}

func (w *Worker) initProcessor(ctx context.Context, id string) error {
	// считать из базы задачу
	task, err := w.service.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("worker failed to fetch photo task %q from DB: %w", id, err)
	}
	// проверить статус
	switch task.Status {
	case model.StatusDone, model.StatusFailed:
		return nil
	case model.StatusInProgress:
		if !task.Stale(time.Now()) {
			return errInProgress
		}
		// воркер, взявший задачу, умер - забираем ее себе
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Warn().Msg("Taking over stale in_progress task")
	}

	// на всякий случай проверить поле с результатом
	if task.ResultKey != "" && strings.HasPrefix(task.ResultKey, w.resultPrefix) {
		if err := w.service.UpdateStatus(ctx, id, model.StatusDone); err != nil {
			return fmt.Errorf("failed to update status of already-done task in DB: %w", err)
		}
		return nil
	}

	// обновить статус
	if err := w.service.UpdateStatus(ctx, id, model.StatusInProgress); err != nil {
		return fmt.Errorf("failed to update status of task %q to `in_progress` in DB: %w", id, err)
	}

	// выполняем саму подпись
	pErr := w.processTask(ctx, task)
	if pErr == nil {
		return nil
	}

	// битое фото или опции - задача провалена насовсем, иначе возвращаем ее в created для ReviveOrphans.
	// статус пишем и после отмены ctx, иначе задача зависнет в in_progress
	saveCtx := context.WithoutCancel(ctx)
	if final(pErr) {
		task.Status = model.StatusFailed
		task.ErrMsg = append(task.ErrMsg, pErr.Error())
		if uErr := w.service.SaveResult(saveCtx, task); uErr != nil {
			return fmt.Errorf("failed to set status of task %q to `failed` in DB: %w \nAFTER\n error while processing task: %w", id, uErr, pErr)
		}
	} else if uErr := w.service.UpdateStatus(saveCtx, id, model.StatusCreated); uErr != nil {
		return fmt.Errorf("failed to reset status of task %q in DB: %w \nAFTER\n error while processing task: %w", id, uErr, pErr)
	}
	return fmt.Errorf("failed to process task %q: %w", id, pErr)
}

func (w *Worker) processTask(ctx context.Context, task *model.Photo) error {
	logger := mwlogger.LoggerFromContext(ctx)

	// достать из storage исходник
	src, _, err := w.storage.Get(ctx, task.SourceKey)
	if err != nil {
		return fmt.Errorf("worker failed to fetch source photo from storage: %w", err)
	}
	defer closeFileFlow(ctx, src)

	// подписать
	signed, err := w.drawer.SignStream(src, signConfig(task.Options), task.Options.MaxSide)
	switch {
	case errors.Is(err, signer.ErrNoCandidate):
		// ни одна подпись не видна на фото - это результат, а не сбой
		logger.Info().Msg("No suitable sign for photo")
		task.Status = model.StatusFailed
		task.ErrMsg = append(task.ErrMsg, model.ErrNoSuitableSign.Error())
		if err := w.service.SaveResult(ctx, task); err != nil {
			return fmt.Errorf("worker failed to save no-candidate result to DB: %w", err)
		}
		return nil
	case errors.Is(err, placement.ErrInvalidConfig), errors.Is(err, placement.ErrUnknownCorner):
		return fmt.Errorf("%w: %v", model.ErrIncorrectOptions, err)
	case err != nil:
		return fmt.Errorf("%w: %v", model.ErrUnsupportedFormat, err)
	}

	// положить результат в сторедж
	resCType, ok := model.GetCType[signed.Format]
	if !ok {
		return fmt.Errorf("%w: no content type for result format %v", model.ErrUnsupportedFormat, signed.Format)
	}
	resKey := w.resultPrefix + task.UID.String() + model.GetImageFileExt[resCType]
	if err := w.storage.Put(ctx, resKey, signed.Size, resCType, signed.Body); err != nil {
		return fmt.Errorf("worker failed to put signed photo to storage: %w", err)
	}

	task.Status = model.StatusDone
	task.ResultKey = resKey
	task.SignName = &signed.Result.Sign
	task.Distance = &signed.Result.Distance

	// обновить запись в БД
	if err := w.service.SaveResult(ctx, task); err != nil {
		return fmt.Errorf("worker failed to save result to DB: %w", err)
	}

	logger.Info().Str("sign", signed.Result.Sign).Float64("distance", signed.Result.Distance).Msg("Photo signed")
	return nil
}

func signConfig(o model.SignOptions) signer.Config {
	return signer.Config{
		Placement: placement.Config{
			Corner:    placement.Corner(o.Corner),
			Margin:    o.Margin,
			ScaleRate: o.ScaleRate,
			SignRatio: o.SignRatio,
		},
		AutoColor: o.AutoColor,
		AutoScale: o.AutoScale,
	}
}

func closeFileFlow(ctx context.Context, res io.ReadCloser) {
	if res == nil {
		return
	}

	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Msg("Worker failed to close fileflow")
	}
}

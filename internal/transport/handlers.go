// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

type PhotoHandler struct {
	service PhotoService
}

type PhotoService interface {
	Create(ctx context.Context, newPhoto *model.PhotoCreateData) (*model.Photo, error)
	Get(ctx context.Context, id string) (*model.Photo, error)                   // статус задачи и выбранная подпись
	Delete(ctx context.Context, id string) error                                // удалить как в базе, так и в minio
	LoadResult(ctx context.Context, id string) (io.ReadCloser, string, error)   // прям скачать результат
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error) // получить список
}

func NewPhotoHandler(svc PhotoService) *PhotoHandler {
	return &PhotoHandler{
		service: svc,
	}
}

func (h PhotoHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(http.StatusOK, map[string]string{"message": "pong"})
}

func (h PhotoHandler) Create(ctx *ginext.Context) {
	// парсинг исходника
	photoFile, photoHeader, err := ctx.Request.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, map[string]string{"error": "image is required"})
		return
	}
	defer closeFileFlow(ctx, photoFile)

	// собираем все в структуру, опции валидирует сервис
	raw := model.PhotoCreateData{
		Corner:         ctx.PostForm("corner"),
		Margin:         ctx.PostForm("margin"),
		ScaleRate:      ctx.PostForm("scale_rate"),
		SignRatio:      ctx.PostForm("sign_ratio"),
		AutoColor:      ctx.PostForm("auto_color"),
		AutoScale:      ctx.PostForm("auto_scale"),
		MaxSide:        ctx.PostForm("max_side"),
		Img:            photoFile,
		ImgContentType: contentTypeOf(photoHeader),
		ImgSize:        photoHeader.Size,
	}

	// передаем в сервис
	res, err := h.service.Create(ctx.Request.Context(), &raw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, res)
}

func (h PhotoHandler) GetAllPhotos(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, map[string]string{"error": model.ErrIncorrectQuery.Error()})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h PhotoHandler) GetPhoto(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (h PhotoHandler) LoadResult(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadResult(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	defer closeFileFlow(ctx, res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(http.StatusOK)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Int64("written", n).Str("uid", id).Msg("Failed to write signed photo to response")
	}
}

func (h PhotoHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(http.StatusNoContent)
}

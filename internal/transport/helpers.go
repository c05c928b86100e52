package transport

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/mwlogger"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrPhotoNotFound),
		errors.Is(err, model.ErrResultNotReady):
		return http.StatusNotFound
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrEmptySource),
		errors.Is(err, model.ErrIncorrectOptions),
		errors.Is(err, model.ErrIncorrectStatus),
		errors.Is(err, model.ErrUnsupportedFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// contentTypeOf trusts the part header and falls back to the file extension, clients
// often send application/octet-stream for photos.
func contentTypeOf(h *multipart.FileHeader) string {
	ct := strings.TrimSpace(strings.ToLower(h.Header.Get("Content-Type")))
	if model.InImageTypeMap[ct] {
		return ct
	}
	byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(h.Filename)))
	if i := strings.IndexByte(byExt, ';'); i >= 0 {
		byExt = byExt[:i]
	}
	if model.InImageTypeMap[byExt] {
		return byExt
	}
	return ct
}

func closeFileFlow(ctx *ginext.Context, res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		logger := mwlogger.LoggerFromContext(ctx.Request.Context())
		logger.Error().Err(err).Msg("Handler failed to close fileflow")
	}
}

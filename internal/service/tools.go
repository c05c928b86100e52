package service

import (
	"strconv"
	"strings"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/placement"
)

const maxSideLimit = 10000

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case strings.Contains(req.Sort, model.ByUUID):
		req.Sort = "photo_uid"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валидируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

func validateNormalizePhotoInfo(raw *model.PhotoCreateData, clean *model.Photo) error {
	// корректен ли исходник
	if raw.Img == nil || raw.ImgSize <= 0 || !model.InImageTypeMap[raw.ImgContentType] {
		return model.ErrEmptySource
	}

	opts, err := parseSignOptions(raw)
	if err != nil {
		return err
	}
	clean.Options = opts
	return nil
}

// parseSignOptions turns the form values into SignOptions; empty values take defaults.
func parseSignOptions(raw *model.PhotoCreateData) (model.SignOptions, error) {
	def := placement.DefaultConfig()
	opts := model.SignOptions{Margin: def.Margin}

	corner, err := placement.ParseCorner(raw.Corner)
	if err != nil {
		return opts, model.ErrIncorrectOptions
	}
	opts.Corner = string(corner)

	if opts.Margin, err = intOr(raw.Margin, def.Margin); err != nil {
		return opts, model.ErrIncorrectOptions
	}
	if opts.ScaleRate, err = floatOr(raw.ScaleRate, 0); err != nil {
		return opts, model.ErrIncorrectOptions
	}
	if opts.SignRatio, err = floatOr(raw.SignRatio, 0); err != nil {
		return opts, model.ErrIncorrectOptions
	}
	if opts.AutoColor, err = boolOr(raw.AutoColor, false); err != nil {
		return opts, model.ErrIncorrectOptions
	}
	if opts.AutoScale, err = boolOr(raw.AutoScale, false); err != nil {
		return opts, model.ErrIncorrectOptions
	}
	if opts.MaxSide, err = intOr(raw.MaxSide, 0); err != nil || opts.MaxSide < 0 || opts.MaxSide > maxSideLimit {
		return opts, model.ErrIncorrectOptions
	}

	cfg := placement.Config{
		Corner:    corner,
		Margin:    opts.Margin,
		ScaleRate: opts.ScaleRate,
		SignRatio: opts.SignRatio,
	}
	if err := cfg.Validate(); err != nil {
		return opts, model.ErrIncorrectOptions
	}

	return opts, nil
}

func intOr(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

func floatOr(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func boolOr(s string, def bool) (bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.ParseBool(s)
}

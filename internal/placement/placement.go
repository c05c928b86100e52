// Package placement computes where a sign goes on a photo: an anchor corner, a margin
// and a scale that is either fixed or derived from the photo size.
package placement

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
)

var (
	ErrDoesNotFit    = errors.New("sign does not fit into photo")
	ErrUnknownCorner = errors.New("unknown corner")
	ErrInvalidConfig = errors.New("invalid placement config")
)

type Corner string

const (
	TopLeft     Corner = "top-left"
	TopRight    Corner = "top-right"
	BottomLeft  Corner = "bottom-left"
	BottomRight Corner = "bottom-right"
	Center      Corner = "center"
)

var cornersMap = map[Corner]bool{
	TopLeft:     true,
	TopRight:    true,
	BottomLeft:  true,
	BottomRight: true,
	Center:      true,
}

// ParseCorner normalizes s; an empty string selects BottomRight.
func ParseCorner(s string) (Corner, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return BottomRight, nil
	}
	c := Corner(s)
	if !cornersMap[c] {
		return "", fmt.Errorf("%w: %q", ErrUnknownCorner, s)
	}
	return c, nil
}

// DefaultSignRatio is the share of the photo's shorter side taken by the sign's longer
// side when no fixed scale is configured.
const DefaultSignRatio = 0.2

// Config describes the placement policy.
type Config struct {
	Corner Corner
	// Margin is the inset from the anchor corner in pixels. Ignored for Center.
	Margin int
	// ScaleRate, when positive, is used as is.
	ScaleRate float64
	// SignRatio drives the scale when ScaleRate is zero. Zero means DefaultSignRatio.
	SignRatio float64
}

func DefaultConfig() Config {
	return Config{
		Corner:    BottomRight,
		Margin:    16,
		SignRatio: DefaultSignRatio,
	}
}

func (c Config) Validate() error {
	if c.Corner != "" && !cornersMap[c.Corner] {
		return fmt.Errorf("%w: %q", ErrUnknownCorner, c.Corner)
	}
	if c.Margin < 0 {
		return fmt.Errorf("%w: negative margin %d", ErrInvalidConfig, c.Margin)
	}
	if c.ScaleRate < 0 || math.IsNaN(c.ScaleRate) || math.IsInf(c.ScaleRate, 0) {
		return fmt.Errorf("%w: scale rate %v", ErrInvalidConfig, c.ScaleRate)
	}
	if c.SignRatio < 0 || c.SignRatio > 1 || math.IsNaN(c.SignRatio) {
		return fmt.Errorf("%w: sign ratio %v", ErrInvalidConfig, c.SignRatio)
	}
	return nil
}

// Placement is where and how large a sign is drawn on a given photo.
type Placement struct {
	Rect  image.Rectangle
	Scale float64
}

// Placer computes a placement for a sign of the given size on a photo of the given size.
// The returned rectangle always lies inside the photo.
type Placer interface {
	Place(photo, sign image.Point, cfg Config) (Placement, error)
}

// CornerPlacer anchors the scaled sign at cfg.Corner, inset by cfg.Margin.
type CornerPlacer struct{}

func (CornerPlacer) Place(photo, sign image.Point, cfg Config) (Placement, error) {
	if err := cfg.Validate(); err != nil {
		return Placement{}, err
	}
	if photo.X <= 0 || photo.Y <= 0 || sign.X <= 0 || sign.Y <= 0 {
		return Placement{}, fmt.Errorf("%w: photo %v, sign %v", ErrDoesNotFit, photo, sign)
	}

	scale := cfg.ScaleRate
	if scale == 0 {
		ratio := cfg.SignRatio
		if ratio == 0 {
			ratio = DefaultSignRatio
		}
		scale = ratio * float64(min(photo.X, photo.Y)) / float64(max(sign.X, sign.Y))
	}

	w := int(math.Round(float64(sign.X) * scale))
	h := int(math.Round(float64(sign.Y) * scale))
	if w < 1 || h < 1 {
		return Placement{}, fmt.Errorf("%w: scaled sign %dx%d is empty", ErrDoesNotFit, w, h)
	}

	m := cfg.Margin
	var x0, y0 int
	switch cfg.Corner {
	case TopLeft:
		x0, y0 = m, m
	case TopRight:
		x0, y0 = photo.X-m-w, m
	case BottomLeft:
		x0, y0 = m, photo.Y-m-h
	case Center:
		x0, y0 = (photo.X-w)/2, (photo.Y-h)/2
	default: // BottomRight
		x0, y0 = photo.X-m-w, photo.Y-m-h
	}

	rect := image.Rect(x0, y0, x0+w, y0+h)
	if !rect.In(image.Rect(0, 0, photo.X, photo.Y)) {
		return Placement{}, fmt.Errorf("%w: rect %v, photo %v", ErrDoesNotFit, rect, photo)
	}

	return Placement{Rect: rect, Scale: scale}, nil
}

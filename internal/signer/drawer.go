// Package signer chooses, among a library of signs, the one that stands out most on a
// photo at its computed placement, and blends it into a copy of the photo.
package signer

import (
	"errors"
	"image"

	"github.com/UnendingLoop/PhotoSigner/internal/colorstat"
	"github.com/UnendingLoop/PhotoSigner/internal/imageproc"
	"github.com/UnendingLoop/PhotoSigner/internal/placement"
	"github.com/disintegration/imaging"
	"github.com/wb-go/wbf/zlog"
)

// ErrNoCandidate means no sign could be placed on the photo with a visible contrast.
var ErrNoCandidate = errors.New("no suitable sign for photo")

const distanceEpsilon = 1e-6

// Config holds the per-call options of Sign.
type Config struct {
	Placement placement.Config
	// AutoColor replaces the sign colors with a color contrasting the photo background.
	AutoColor bool
	// AutoScale draws the sign at the placement scale. Without it the placement scale is
	// forced to 1 so the scored area is the area the sign covers.
	AutoScale bool
}

// Result describes a signed photo.
type Result struct {
	Image    *image.NRGBA
	Sign     string
	Rect     image.Rectangle
	Scale    float64
	Distance float64
}

// Drawer signs photos with the signs of a library. It keeps no state between calls and
// is safe for concurrent use once the library is loaded.
type Drawer struct {
	library *Library
	placer  placement.Placer
}

// NewDrawer returns a Drawer; a nil placer selects placement.CornerPlacer.
func NewDrawer(lib *Library, placer placement.Placer) *Drawer {
	if placer == nil {
		placer = placement.CornerPlacer{}
	}
	return &Drawer{library: lib, placer: placer}
}

// Library returns the signs the drawer chooses from.
func (d *Drawer) Library() *Library {
	return d.library
}

type candidate struct {
	sign     *Sign
	rect     image.Rectangle
	scale    float64
	distance float64
}

// Sign picks the best sign for src and returns a signed copy. src is never modified.
// ErrNoCandidate is returned when no sign qualifies.
func (d *Drawer) Sign(src imageproc.Picture, cfg Config) (*Result, error) {
	if err := cfg.Placement.Validate(); err != nil {
		return nil, err
	}

	photo := src.Image
	if photo.Rect.Min != (image.Point{}) {
		photo = imaging.Clone(photo)
	}
	src.Image = photo

	pcfg := cfg.Placement
	if !cfg.AutoScale {
		// знак рисуется в натуральную величину, оцениваем ту же область
		pcfg.ScaleRate = 1
	}

	best, ok := d.choose(src, pcfg)
	if !ok {
		return nil, ErrNoCandidate
	}

	dst := imaging.Clone(photo)

	sign := best.sign.Picture.Image
	if cfg.AutoScale && best.rect.Size() != sign.Bounds().Size() {
		sign = imageproc.Rescale(sign, best.rect.Dx(), best.rect.Dy())
	}

	var fg *colorstat.Pixel
	if cfg.AutoColor {
		fg = d.contrastColor(dst, src.Type, best.rect)
	}

	composite(dst, sign, best.rect.Min, fg)

	return &Result{
		Image:    dst,
		Sign:     best.sign.Name,
		Rect:     best.rect,
		Scale:    best.scale,
		Distance: best.distance,
	}, nil
}

// choose scores every sign that can be placed by the distance between its mean color
// and the mean color of the photo area it would cover. The first sign with the
// strictly greatest distance wins.
func (d *Drawer) choose(src imageproc.Picture, cfg placement.Config) (candidate, bool) {
	var best candidate
	found := false

	signs := d.library.Signs()
	for i := range signs {
		s := &signs[i]

		p, err := d.placer.Place(src.Size(), s.Picture.Size(), cfg)
		if err != nil {
			zlog.Logger.Debug().Err(err).Str("sign", s.Name).Msg("sign placement rejected")
			continue
		}

		sub, err := imageproc.SubImage(src.Image, p.Rect)
		if err != nil {
			continue
		}

		area := colorstat.Region{Image: sub, Type: src.Type}
		dist, err := area.Distance(s.Picture.Region())
		if err != nil {
			zlog.Logger.Debug().Err(err).Str("sign", s.Name).Msg("sign color distance undefined")
			continue
		}

		if dist > best.distance+distanceEpsilon {
			best = candidate{sign: s, rect: p.Rect, scale: p.Scale, distance: dist}
			found = true
		}
	}

	return best, found
}

// contrastColor derives the overlay color from the destination area under the sign.
// It returns nil, keeping the sign colors, when that area has no weighted pixel.
func (d *Drawer) contrastColor(dst *image.NRGBA, t colorstat.ColorType, rect image.Rectangle) *colorstat.Pixel {
	sub, err := imageproc.SubImage(dst, rect)
	if err != nil {
		return nil
	}
	mean, err := colorstat.MeanColor(sub, t)
	if err != nil {
		zlog.Logger.Debug().Err(err).Msg("no background color, keeping sign colors")
		return nil
	}
	c := ContrastColor(mean)
	return &c
}

// composite blends sign into dst at the given offset. The sign alpha is the blend
// weight; zero-weight pixels leave dst untouched, others make it opaque. With a non-nil
// fg its color replaces the sign colors.
func composite(dst, sign *image.NRGBA, at image.Point, fg *colorstat.Pixel) {
	sb := sign.Bounds()
	db := dst.Bounds()

	for i := 0; i < sb.Dy(); i++ {
		for j := 0; j < sb.Dx(); j++ {
			s := sign.PixOffset(sb.Min.X+j, sb.Min.Y+i)
			w := uint32(sign.Pix[s+3])
			if w == 0 {
				continue
			}

			p := image.Pt(at.X+j, at.Y+i)
			if !p.In(db) {
				continue
			}

			r, g, b := sign.Pix[s], sign.Pix[s+1], sign.Pix[s+2]
			if fg != nil {
				r, g, b = fg.R, fg.G, fg.B
			}

			o := dst.PixOffset(p.X, p.Y)
			dst.Pix[o] = blend(dst.Pix[o], r, w)
			dst.Pix[o+1] = blend(dst.Pix[o+1], g, w)
			dst.Pix[o+2] = blend(dst.Pix[o+2], b, w)
			dst.Pix[o+3] = 0xff
		}
	}
}

func blend(bg, fg uint8, w uint32) uint8 {
	return uint8((uint32(bg)*(255-w) + uint32(fg)*w) / 255)
}

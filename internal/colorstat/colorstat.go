// Package colorstat provides color statistics for image regions: the mean color of the
// pixels that carry weight and the Euclidean RGB distance between two such means.
package colorstat

import (
	"errors"
	"image"
	"image/color"

	"gonum.org/v1/gonum/floats"
)

// ErrNoPixels is returned when a region has no included pixel to average.
var ErrNoPixels = errors.New("region has no weighted pixels")

// ColorType tells whether the alpha channel of an image carries information.
type ColorType uint8

const (
	RGB  ColorType = iota // no alpha channel, every pixel counts
	RGBA                  // alpha is a blend weight, zero-weight pixels are excluded
)

func (t ColorType) String() string {
	if t == RGBA {
		return "RGBA"
	}
	return "RGB"
}

// ColorTypeOf reports the color type of a decoded image. It must be called on the image
// as returned by the decoder, before any conversion to NRGBA.
func ColorTypeOf(img image.Image) ColorType {
	switch m := img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.Alpha, *image.Alpha16:
		return RGBA
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return RGBA
			}
		}
	}
	return RGB
}

// Pixel is an 8-bit straight-alpha color sample.
type Pixel struct {
	R, G, B, A uint8
}

// MeanColor averages the included pixels of img. With RGB every pixel is included,
// with RGBA only pixels whose alpha is above zero.
func MeanColor(img image.Image, t ColorType) (Pixel, error) {
	var sum [4]uint64
	var count uint64

	add := func(r, g, b, a uint8) {
		if t == RGBA && a == 0 {
			return
		}
		sum[0] += uint64(r)
		sum[1] += uint64(g)
		sum[2] += uint64(b)
		sum[3] += uint64(a)
		count++
	}

	bounds := img.Bounds()
	if m, ok := img.(*image.NRGBA); ok {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			i := m.PixOffset(bounds.Min.X, y)
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				add(m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3])
				i += 4
			}
		}
	} else {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				add(c.R, c.G, c.B, c.A)
			}
		}
	}

	if count == 0 {
		return Pixel{}, ErrNoPixels
	}

	return Pixel{
		R: uint8(sum[0] / count),
		G: uint8(sum[1] / count),
		B: uint8(sum[2] / count),
		A: uint8(sum[3] / count),
	}, nil
}

// Distance is the Euclidean distance between two colors over R, G and B. Alpha is a
// blend weight here, not a perceptual channel, so it is left out.
func Distance(a, b Pixel) float64 {
	return floats.Distance(
		[]float64{float64(a.R), float64(a.G), float64(a.B)},
		[]float64{float64(b.R), float64(b.G), float64(b.B)},
		2,
	)
}

// Region is an image view paired with its color type.
type Region struct {
	Image image.Image
	Type  ColorType
}

// Mean returns the mean color of the region.
func (r Region) Mean() (Pixel, error) {
	return MeanColor(r.Image, r.Type)
}

// Distance compares the mean colors of r and other. A region without included pixels
// yields ErrNoPixels, which callers treat as a non-match.
func (r Region) Distance(other Region) (float64, error) {
	self, err := r.Mean()
	if err != nil {
		return 0, err
	}
	that, err := other.Mean()
	if err != nil {
		return 0, err
	}
	return Distance(self, that), nil
}

package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// Rescale returns a resampled copy of img; img itself is left untouched.
func Rescale(img image.Image, w, h int) *image.NRGBA {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

package imageproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// Fit downscales img so that neither side exceeds maxSide, keeping the aspect ratio.
// Images that already fit, or maxSide <= 0, are returned as is.
func Fit(img *image.NRGBA, maxSide int) *image.NRGBA {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

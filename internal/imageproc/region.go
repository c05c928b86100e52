package imageproc

import (
	"errors"
	"fmt"
	"image"
)

var ErrOutOfBounds = errors.New("region outside image bounds")

// SubImage returns the part of img inside rect. The result shares pixels with img.
func SubImage(img *image.NRGBA, rect image.Rectangle) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if rect.Empty() || !rect.In(bounds) {
		return nil, fmt.Errorf("%w: %v not in %v", ErrOutOfBounds, rect, bounds)
	}
	return img.SubImage(rect).(*image.NRGBA), nil
}

package signer

import (
	"math"

	"github.com/UnendingLoop/PhotoSigner/internal/colorstat"
	"github.com/lucasb-eyer/go-colorful"
)

const (
	goldenMinor = 0.3820
	goldenMajor = 0.6180
)

// ReversedHSV complements the background color in HSV space: the hue is rotated by 180
// degrees and saturation and value are inverted, then each of them is pinned to
// goldenMajor (below goldenMinor) or to 1.
func ReversedHSV(bg colorstat.Pixel) (h, s, v float64) {
	c := colorful.Color{
		R: float64(bg.R) / 255,
		G: float64(bg.G) / 255,
		B: float64(bg.B) / 255,
	}
	h, s, v = c.Hsv()

	h = math.Mod(h+180, 360)
	s = goldenClamp(1 - s)
	v = goldenClamp(1 - v)
	return h, s, v
}

// ContrastColor picks the overlay color used instead of the sign's own colors.
func ContrastColor(bg colorstat.Pixel) colorstat.Pixel {
	r, g, b := colorful.Hsv(ReversedHSV(bg)).Clamped().RGB255()
	return colorstat.Pixel{R: r, G: g, B: b, A: bg.A}
}

func goldenClamp(x float64) float64 {
	if x < goldenMinor {
		return goldenMajor
	}
	return 1
}

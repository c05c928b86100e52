package colorstat

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// uniformWithBorder fills the inner area with c and leaves a fully transparent border.
func uniformWithBorder(w, h, border int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := border; y < h-border; y++ {
		for x := border; x < w-border; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestMeanColor_ExcludesTransparentPixels(t *testing.T) {
	c := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	img := uniformWithBorder(20, 10, 2, c)

	mean, err := MeanColor(img, RGBA)
	require.NoError(t, err)
	require.Equal(t, Pixel{R: 200, G: 100, B: 50, A: 255}, mean)
}

func TestMeanColor_RGBIncludesEveryPixel(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	// alpha 0 still counts for an RGB image
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 0, B: 0, A: 0})

	mean, err := MeanColor(img, RGB)
	require.NoError(t, err)
	require.Equal(t, uint8(50), mean.R)
	require.Equal(t, uint8(50), mean.G)
	require.Equal(t, uint8(50), mean.B)
}

func TestMeanColor_NoPixels(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))

	_, err := MeanColor(img, RGBA)
	require.ErrorIs(t, err, ErrNoPixels)

	_, err = MeanColor(image.NewNRGBA(image.Rect(0, 0, 0, 0)), RGB)
	require.ErrorIs(t, err, ErrNoPixels)
}

func TestMeanColor_SubImageAndGenericPath(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	for y := 5; y < 10; y++ {
		for x := 5; x < 10; x++ {
			img.Set(x, y, color.RGBA{R: 250, G: 0, B: 0, A: 255})
		}
	}

	mean, err := MeanColor(img.SubImage(image.Rect(5, 5, 10, 10)), RGB)
	require.NoError(t, err)
	require.Equal(t, Pixel{R: 250, G: 0, B: 0, A: 255}, mean)

	nrgba := uniformWithBorder(10, 10, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	view := nrgba.SubImage(image.Rect(2, 3, 6, 7))
	mean, err = MeanColor(view, RGBA)
	require.NoError(t, err)
	require.Equal(t, Pixel{R: 10, G: 20, B: 30, A: 255}, mean)
}

func TestMeanColor_LargeImageDoesNotOverflow(t *testing.T) {
	img := uniformWithBorder(2000, 2000, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	mean, err := MeanColor(img, RGBA)
	require.NoError(t, err)
	require.Equal(t, Pixel{R: 255, G: 255, B: 255, A: 255}, mean)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b Pixel
		want float64
	}{
		{"same color", Pixel{10, 20, 30, 255}, Pixel{10, 20, 30, 0}, 0},
		{"black vs white", Pixel{0, 0, 0, 255}, Pixel{255, 255, 255, 255}, math.Sqrt(3 * 255 * 255)},
		{"3-4-0 triangle", Pixel{0, 0, 0, 255}, Pixel{3, 4, 0, 255}, 5},
		{"alpha ignored", Pixel{1, 1, 1, 0}, Pixel{1, 1, 1, 255}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Distance(tt.a, tt.b), 1e-9)
			require.InDelta(t, Distance(tt.a, tt.b), Distance(tt.b, tt.a), 1e-9)
		})
	}
}

func TestRegion_DistanceSymmetric(t *testing.T) {
	a := Region{Image: uniformWithBorder(8, 8, 1, color.NRGBA{R: 30, G: 60, B: 90, A: 200}), Type: RGBA}
	b := Region{Image: uniformWithBorder(4, 6, 0, color.NRGBA{R: 200, G: 10, B: 0, A: 255}), Type: RGB}

	ab, err := a.Distance(b)
	require.NoError(t, err)
	ba, err := b.Distance(a)
	require.NoError(t, err)
	require.InDelta(t, ab, ba, 1e-9)
	require.Greater(t, ab, 0.0)
}

func TestRegion_DistanceEmptyRegion(t *testing.T) {
	empty := Region{Image: image.NewNRGBA(image.Rect(0, 0, 3, 3)), Type: RGBA}
	full := Region{Image: uniformWithBorder(3, 3, 0, color.NRGBA{A: 255}), Type: RGB}

	_, err := empty.Distance(full)
	require.ErrorIs(t, err, ErrNoPixels)
	_, err = full.Distance(empty)
	require.ErrorIs(t, err, ErrNoPixels)
}

func TestColorTypeOf(t *testing.T) {
	opaquePalette := image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.Black, color.White})
	clearPalette := image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.Transparent, color.White})

	tests := []struct {
		name string
		img  image.Image
		want ColorType
	}{
		{"nrgba", image.NewNRGBA(image.Rect(0, 0, 1, 1)), RGBA},
		{"rgba", image.NewRGBA(image.Rect(0, 0, 1, 1)), RGBA},
		{"gray", image.NewGray(image.Rect(0, 0, 1, 1)), RGB},
		{"ycbcr", image.NewYCbCr(image.Rect(0, 0, 1, 1), image.YCbCrSubsampleRatio420), RGB},
		{"opaque palette", opaquePalette, RGB},
		{"transparent palette", clearPalette, RGBA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ColorTypeOf(tt.img))
		})
	}
}

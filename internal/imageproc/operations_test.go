package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnendingLoop/PhotoSigner/internal/colorstat"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testImageBytes(t *testing.T, w, h int, format imaging.Format) []byte {
	t.Helper()

	var buf bytes.Buffer
	err := imaging.Encode(&buf, testImage(w, h, color.NRGBA{R: 100, G: 100, B: 200, A: 255}), format)
	require.NoError(t, err)

	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		wantFormat imaging.Format
		wantType   colorstat.ColorType
		wantErr    bool
	}{
		{
			name:       "png keeps alpha",
			data:       testImageBytes(t, 20, 10, imaging.PNG),
			wantFormat: imaging.PNG,
			wantType:   colorstat.RGBA,
		},
		{
			name:       "jpeg has no alpha",
			data:       testImageBytes(t, 20, 10, imaging.JPEG),
			wantFormat: imaging.JPEG,
			wantType:   colorstat.RGB,
		},
		{
			name:       "bmp",
			data:       testImageBytes(t, 20, 10, imaging.BMP),
			wantFormat: imaging.BMP,
		},
		{
			name:    "broken image",
			data:    []byte("not-an-image"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pic, err := Decode(bytes.NewReader(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantFormat, pic.Format)
			require.Equal(t, image.Pt(20, 10), pic.Size())
			if tt.wantFormat != imaging.BMP {
				require.Equal(t, tt.wantType, pic.Type)
			}
		})
	}
}

func TestDecode_NilReader(t *testing.T) {
	_, err := Decode(nil)
	require.ErrorIs(t, err, ErrNilReader)
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")

	require.NoError(t, Save(path, testImage(30, 20, color.NRGBA{R: 10, G: 200, B: 10, A: 255}), 100))

	pic, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, imaging.JPEG, pic.Format)
	require.Equal(t, image.Pt(30, 20), pic.Size())

	_, err = Load(filepath.Join(dir, "missing.png"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	_, err = Load(filepath.Join(dir, "notes.txt"))
	require.Error(t, err)

	require.Error(t, Save(filepath.Join(dir, "photo.unknown"), testImage(1, 1, color.Black), 100))
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testImage(5, 5, color.White), imaging.PNG, 100))

	pic, err := Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, image.Pt(5, 5), pic.Size())
}

func TestNewPicture_MovesToOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 14, 13))
	pic := NewPicture(src, imaging.PNG)

	require.Equal(t, image.Rect(0, 0, 4, 3), pic.Image.Bounds())
	require.Equal(t, colorstat.RGBA, pic.Type)
}

func TestSubImage(t *testing.T) {
	img := testImage(10, 10, color.White)

	tests := []struct {
		name    string
		rect    image.Rectangle
		wantErr bool
	}{
		{"inside", image.Rect(2, 2, 5, 6), false},
		{"whole image", image.Rect(0, 0, 10, 10), false},
		{"empty", image.Rect(3, 3, 3, 8), true},
		{"partly outside", image.Rect(5, 5, 11, 8), true},
		{"negative", image.Rect(-1, 0, 2, 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := SubImage(img, tt.rect)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOutOfBounds)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.rect, sub.Bounds())
		})
	}
}

func TestRescale(t *testing.T) {
	src := testImage(40, 20, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	res := Rescale(src, 20, 10)
	require.Equal(t, image.Pt(20, 10), res.Bounds().Size())
	require.Equal(t, image.Pt(40, 20), src.Bounds().Size())
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		maxSide int
		want    image.Point
	}{
		{"landscape", 400, 200, 100, image.Pt(100, 50)},
		{"portrait", 200, 400, 100, image.Pt(50, 100)},
		{"already fits", 80, 60, 100, image.Pt(80, 60)},
		{"disabled", 400, 200, 0, image.Pt(400, 200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Fit(testImage(tt.w, tt.h, color.White), tt.maxSide)
			require.Equal(t, tt.want, res.Bounds().Size())
		})
	}
}

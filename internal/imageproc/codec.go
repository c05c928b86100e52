// Package imageproc provides the image access layer: decoding with color-type detection,
// encoding, sub-image extraction and Lanczos rescaling.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/UnendingLoop/PhotoSigner/internal/colorstat"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

var ErrNilReader = errors.New("nil-reader provided")

// Picture is a decoded image converted to straight-alpha NRGBA, anchored at the origin.
type Picture struct {
	Image *image.NRGBA
	// Type is detected on the decoder output, before the NRGBA conversion.
	Type colorstat.ColorType
	// Format is the encoder to use for results derived from this picture.
	Format imaging.Format
}

// NewPicture wraps an in-memory image.
func NewPicture(img image.Image, format imaging.Format) Picture {
	return Picture{
		Image:  imaging.Clone(img),
		Type:   colorstat.ColorTypeOf(img),
		Format: format,
	}
}

func (p Picture) Size() image.Point {
	return p.Image.Bounds().Size()
}

// Region returns a view for color statistics.
func (p Picture) Region() colorstat.Region {
	return colorstat.Region{Image: p.Image, Type: p.Type}
}

// Decode reads a JPEG, PNG, GIF, BMP, TIFF or WebP image. JPEG EXIF orientation is applied.
// Formats that cannot be encoded back (WebP) fall back to PNG for results.
func Decode(r io.Reader) (Picture, error) {
	if r == nil {
		return Picture{}, ErrNilReader
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Picture{}, fmt.Errorf("failed to read image: %w", err)
	}

	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Picture{}, fmt.Errorf("failed to detect image format: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Picture{}, fmt.Errorf("failed to decode image: %w", err)
	}

	format, err := imaging.FormatFromExtension(name)
	if err != nil {
		format = imaging.PNG
	}

	return NewPicture(img, format), nil
}

// Load opens and decodes the file at path.
func Load(path string) (Picture, error) {
	f, err := os.Open(path)
	if err != nil {
		return Picture{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Encode writes img in the given format; quality only applies to JPEG.
func Encode(w io.Writer, img image.Image, format imaging.Format, quality int) error {
	if err := imaging.Encode(w, img, format, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

// Save writes img to path, the format follows the file extension.
func Save(path string, img image.Image, quality int) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to save image %q: %w", path, err)
	}
	return nil
}

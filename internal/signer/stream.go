package signer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/UnendingLoop/PhotoSigner/internal/imageproc"
	"github.com/disintegration/imaging"
)

// StreamQuality is the JPEG quality of signed outputs.
const StreamQuality = 100

// Signed is an encoded signed photo.
type Signed struct {
	Body   io.Reader
	Size   int64
	Format imaging.Format
	Result *Result
}

// SignStream decodes a photo from r, signs it, optionally downscales it to maxSide and
// encodes it back in the source format.
func (d *Drawer) SignStream(r io.Reader, cfg Config, maxSide int) (*Signed, error) {
	src, err := imageproc.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}

	res, err := d.Sign(src, cfg)
	if err != nil {
		return nil, err
	}

	out := imageproc.Fit(res.Image, maxSide)

	var buf bytes.Buffer
	if err := imageproc.Encode(&buf, out, src.Format, StreamQuality); err != nil {
		return nil, fmt.Errorf("encode signed photo: %w", err)
	}

	return &Signed{Body: &buf, Size: int64(buf.Len()), Format: src.Format, Result: res}, nil
}

package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register the WebP decoder with image.Decode
)

// TranscodedContentType is the content type of every transcoded image.
const TranscodedContentType = "image/jpeg"

// maxDecodePixels caps the declared canvas of an image before it is decoded.
// A few hundred bytes of PNG can claim a canvas that needs gigabytes.
const maxDecodePixels = 50_000_000

// ErrImageTooLarge is wrapped in a decode TransformError when the declared
// canvas exceeds maxDecodePixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// TransformError reports a failure to decode or re-encode a payload.
type TransformError struct {
	Op  string // "decode" or "encode"
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s image: %v", e.Op, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Transcoder shrinks images to a maximum width and re-encodes them as JPEG.
type Transcoder struct {
	MaxWidth int
	Quality  int
}

// Transcode decodes data, applies EXIF orientation, scales it down to at most
// MaxWidth pixels wide keeping the aspect ratio and encodes it as JPEG.
// Narrower images keep their size. Only the first frame of an animation survives.
func (t Transcoder) Transcode(data []byte) ([]byte, image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, image.Point{}, &TransformError{Op: "decode", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxDecodePixels {
		return nil, image.Point{}, &TransformError{
			Op:  "decode",
			Err: fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height),
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Point{}, &TransformError{Op: "decode", Err: err}
	}

	if t.MaxWidth > 0 && img.Bounds().Dx() > t.MaxWidth {
		img = imaging.Resize(img, t.MaxWidth, 0, imaging.Lanczos)
	}

	// JPEG has no alpha channel; composite onto white instead of black.
	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(t.Quality)); err != nil {
		return nil, image.Point{}, &TransformError{Op: "encode", Err: err}
	}
	return buf.Bytes(), image.Pt(b.Dx(), b.Dy()), nil
}

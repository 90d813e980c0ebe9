package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

var ErrDecode = errors.New("imaging: source image not decodable")

// Options bounds the transmitted photo. Zero values take the defaults used
// by the capture device.
type Options struct {
	MaxWidth int
	Quality  int
}

const (
	DefaultMaxWidth = 1280
	DefaultQuality  = 80
)

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Normalize decodes src, scales it down so width does not exceed
// opts.MaxWidth while preserving aspect ratio, and re-encodes as JPEG at the
// fixed quality. The result is fully materialized: the transport needs the
// byte count before anything is sent. Sources already within bounds still
// pass through re-encoding so every transmitted photo is JPEG at the same
// quality.
func Normalize(src []byte, opts Options) ([]byte, error) {
	opts = opts.withDefaults()

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > opts.MaxWidth {
		img = scaleToWidth(img, opts.MaxWidth)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return out.Bytes(), nil
}

func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

package capture

import (
	"bytes"
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ImageSource loads a floorplan image.
type ImageSource interface {
	Load(ctx context.Context) (image.Image, error)
}

// FileSource decodes an image file. PNG, JPEG, GIF, BMP, TIFF and WebP are
// recognized; JPEG orientation tags are applied.
type FileSource string

// Load decodes the file.
func (s FileSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return imaging.Open(string(s), imaging.AutoOrientation(true))
}

// BytesSource decodes an in-memory encoded image.
type BytesSource []byte

// Load decodes the bytes.
func (s BytesSource) Load(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, errors.New("empty image data")
	}
	return imaging.Decode(bytes.NewReader(s), imaging.AutoOrientation(true))
}

// ImageFunc adapts a function to ImageSource.
type ImageFunc func(ctx context.Context) (image.Image, error)

// Load calls f.
func (f ImageFunc) Load(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

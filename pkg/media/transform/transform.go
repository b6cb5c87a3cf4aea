// Package transform implements the in-memory image transform stage applied
// before upload.
package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders. Uploads are validated against the image
	// allow-list (png, jpeg, webp, gif) before reaching this package.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/nfnt/resize"
)

// DefaultQuality is the fixed JPEG quality for re-encoded output.
const DefaultQuality = 85

// JPEGTransformer downscales images to fit within bounds and re-encodes them
// as JPEG at a fixed quality for predictable storage size. It never upscales.
type JPEGTransformer struct {
	Quality int
}

// NewJPEGTransformer creates a transformer with the default output quality.
func NewJPEGTransformer() *JPEGTransformer {
	return &JPEGTransformer{Quality: DefaultQuality}
}

// Fit decodes data, downscales it to fit within maxWidth x maxHeight while
// preserving aspect ratio, and returns the JPEG-encoded result with its MIME
// type. Images already within bounds are re-encoded without resizing.
func (t *JPEGTransformer) Fit(data []byte, maxWidth, maxHeight int) ([]byte, string, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, "", fmt.Errorf("invalid bounds %dx%d", maxWidth, maxHeight)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxWidth || bounds.Dy() > maxHeight {
		// Thumbnail scales down preserving aspect ratio and never upscales.
		img = resize.Thumbnail(uint(maxWidth), uint(maxHeight), img, resize.Lanczos3)
	}

	quality := t.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), "image/jpeg", nil
}

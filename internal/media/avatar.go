// Package media validates and downsizes uploaded avatar images.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxAvatarDim is the longest edge, in pixels, of a stored avatar.
	MaxAvatarDim = 512
	// maxSourcePixels rejects images whose header claims absurd dimensions
	// before any pixel data is decoded.
	maxSourcePixels = 40_000_000
	jpegQuality     = 85
)

var (
	// ErrTooLarge means the upload exceeded the configured byte limit.
	ErrTooLarge = errors.New("image is too large")
	// ErrUnsupported means the upload is not a PNG, JPEG, GIF or WebP image.
	ErrUnsupported = errors.New("unsupported image format")
)

// Avatar is a normalized image ready for the object store.
type Avatar struct {
	Data        []byte
	ContentType string
	Ext         string // with the leading dot
	Width       int
	Height      int
}

// Normalize reads at most maxBytes from r and returns an avatar no larger than
// MaxAvatarDim on either edge.
//
// PNG and JPEG uploads that already fit are stored byte for byte. Larger
// images are scaled down with Catmull-Rom. GIF and WebP are always re-encoded
// as PNG, since only the first frame is kept and there is no WebP encoder.
func Normalize(r io.Reader, maxBytes int64) (*Avatar, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: reading upload: %w", err)
	}
	if int64(len(raw)) > maxBytes {
		return nil, ErrTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrUnsupported
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxSourcePixels {
		return nil, fmt.Errorf("media: %dx%d: %w", cfg.Width, cfg.Height, ErrUnsupported)
	}

	fits := cfg.Width <= MaxAvatarDim && cfg.Height <= MaxAvatarDim
	if fits && (format == "png" || format == "jpeg") {
		return &Avatar{
			Data:        raw,
			ContentType: "image/" + format,
			Ext:         extFor(format),
			Width:       cfg.Width,
			Height:      cfg.Height,
		}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrUnsupported
	}

	w, h := FitWithin(cfg.Width, cfg.Height, MaxAvatarDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	out := "png"
	if format == "jpeg" {
		out = "jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	} else {
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("media: encoding %s: %w", out, err)
	}

	return &Avatar{
		Data:        buf.Bytes(),
		ContentType: "image/" + out,
		Ext:         extFor(out),
		Width:       w,
		Height:      h,
	}, nil
}

// FitWithin scales width x height down so neither edge exceeds maxDim,
// keeping the aspect ratio. Sizes that already fit are returned unchanged.
func FitWithin(width, height, maxDim int) (int, int) {
	if width <= maxDim && height <= maxDim {
		return width, height
	}
	if width >= height {
		newH := int(float64(height) * float64(maxDim) / float64(width))
		return maxDim, max(newH, 1)
	}
	newW := int(float64(width) * float64(maxDim) / float64(height))
	return max(newW, 1), maxDim
}

func extFor(format string) string {
	if format == "jpeg" {
		return ".jpg"
	}
	return "." + format
}

// Package imaging validates and normalizes homework photos before they are
// sent to the model.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the longer side of a normalized image.
	MaxDimension = 1024
	// JPEGQuality is the re-encoding quality.
	JPEGQuality = 85
	// OutputMIMEType is the MIME type of every normalized image.
	OutputMIMEType = "image/jpeg"
)

var (
	// ErrUnsupportedType is returned for files that are not an allowed image format.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("empty image")
)

var (
	allowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
	allowedMIMETypes  = []string{"image/png", "image/jpeg", "image/gif", "image/bmp", "image/x-ms-bmp", "image/webp"}
)

// Image is a normalized JPEG.
type Image struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// AllowedExtension reports whether filename has an accepted image extension.
func AllowedExtension(filename string) bool {
	return slices.Contains(allowedExtensions, strings.ToLower(filepath.Ext(filename)))
}

// Normalize sniffs, decodes, downscales to fit MaxDimension and
// re-encodes raw as JPEG. Transparent areas are flattened onto white.
func Normalize(raw []byte) (*Image, error) {
	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	detected := mimetype.Detect(raw)
	if !isAllowedMIME(detected) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, detected.String())
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == src.Bounds().Dx() && h == src.Bounds().Dy() {
		draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Image{Data: out.Bytes(), MIMEType: OutputMIMEType, Width: w, Height: h}, nil
}

func isAllowedMIME(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if slices.Contains(allowedMIMETypes, m.String()) {
			return true
		}
	}
	return false
}

// fitWithin scales w×h down to fit a limit×limit box, keeping the aspect
// ratio. Images already inside the box are returned unchanged.
func fitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

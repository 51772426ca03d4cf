package util

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var ErrBadImage = errors.New("bad image")

// DefaultMaxSide bounds both dimensions of an image before it is sent to a model.
const DefaultMaxSide = 800

// MaxPixels is the largest image, in pixels, that is decoded at all.
const MaxPixels = 50_000_000

// DecodeImage accepts a data URL or bare base64 string holding PNG, JPEG, GIF or WebP.
// A data URL whose image type contradicts the payload is rejected.
func DecodeImage(s string) (image.Image, string, error) {
	b, hint, err := DecodeBase64MaybeDataURL(s)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadImage, err)
	}
	if err := checkDeclaredMIME(hint, b); err != nil {
		return nil, "", err
	}
	return DecodeImageBytes(b)
}

func checkDeclaredMIME(hint string, b []byte) error {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "image/jpg" {
		hint = "image/jpeg"
	}
	if !strings.HasPrefix(hint, "image/") {
		return nil
	}
	sniffed := SniffMimeHTTP(b)
	if sniffed == "application/octet-stream" || sniffed == hint {
		return nil
	}
	return fmt.Errorf("%w: declared %s but content is %s", ErrBadImage, hint, sniffed)
}

// DecodeImageBytes reads the header first and refuses images above MaxPixels.
func DecodeImageBytes(b []byte) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", fmt.Errorf("%w: empty", ErrBadImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrBadImage, cfg.Width, cfg.Height, MaxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadImage, err)
	}
	return img, format, nil
}

// FitSize returns w x h scaled down to fit a maxSide square, keeping the aspect ratio.
// Sizes already within the bound are returned unchanged.
func FitSize(w, h, maxSide int) (int, int) {
	if maxSide <= 0 || (w <= maxSide && h <= maxSide) {
		return w, h
	}
	if w >= h {
		nh := (h*maxSide + w/2) / w
		return maxSide, max(nh, 1)
	}
	nw := (w*maxSide + h/2) / h
	return max(nw, 1), maxSide
}

// PrepareImage shrinks img so neither side exceeds maxSide, using Catmull-Rom
// resampling. It never upscales; an image within the bound is returned as is.
func PrepareImage(img image.Image, maxSide int) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxSide)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

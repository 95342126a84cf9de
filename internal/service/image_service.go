package service

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"agora/internal/middleware"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	CompressedMaxSize = 1200
	JPEGQuality       = 75
)

// ImageService re-encodes embedded post images so oversized uploads do not
// bloat the posts table.
type ImageService struct{}

func NewImageService() *ImageService {
	return &ImageService{}
}

// CompressDataURI decodes a base64 data URI, scales it to fit within
// 1200x1200 without enlargement and re-encodes it as JPEG. Compression is
// strictly best-effort: on any decode or encode failure the input comes
// back unchanged, so a post is never rejected because of its image.
func (s *ImageService) CompressDataURI(dataURI string) string {
	payload, ok := splitDataURI(dataURI)
	if !ok {
		return dataURI
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return dataURI
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		middleware.Logger.Debug("image compression skipped, keeping original", "error", err)
		return dataURI
	}

	resized := resizeToFit(decoded, CompressedMaxSize, CompressedMaxSize)

	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return dataURI
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// splitDataURI returns the base64 payload of a data URI.
func splitDataURI(uri string) (string, bool) {
	if !strings.HasPrefix(uri, "data:") {
		return "", false
	}
	idx := strings.Index(uri, ";base64,")
	if idx < 0 {
		return "", false
	}
	return uri[idx+len(";base64,"):], true
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

package render

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
)

const (
	defaultJPEGQuality = 80
	defaultWebPQuality = 90
)

// encode serializes img into the requested format, returning the bytes and
// the Content-Type header to send with them. "jpg" is accepted as an alias
// for "jpeg".
func encode(img image.Image, format string, q FormatQuality) ([]byte, string, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil

	case "jpg", "jpeg":
		quality := q.JPEG
		if quality <= 0 {
			quality = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil

	case "webp":
		quality := q.WebP
		if quality <= 0 {
			quality = defaultWebPQuality
		}
		if err := webp.Encode(&buf, img, &webp.Options{Lossless: false, Quality: float32(quality)}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/webp", nil
	}

	return nil, "", errUnsupportedFormat(format)
}

type errUnsupportedFormat string

func (e errUnsupportedFormat) Error() string { return "unsupported encode format: " + string(e) }

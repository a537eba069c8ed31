package render

import "image"

// unpremultiply converts raw's RGB channels from premultiplied to straight
// alpha in place, per-pixel: a zero-alpha pixel zeroes out to transparent
// black, otherwise each channel is divided by alpha/255. Idempotent on
// already-straight buffers (alpha == 255 leaves every channel unchanged).
func unpremultiply(raw *image.NRGBA) {
	b := raw.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		rowStart := raw.PixOffset(b.Min.X, y)
		row := raw.Pix[rowStart : rowStart+4*b.Dx()]
		for i := 0; i < len(row); i += 4 {
			a := row[i+3]
			if a == 0 {
				row[i], row[i+1], row[i+2] = 0, 0, 0
				continue
			}
			if a == 255 {
				continue
			}
			row[i] = unpremultiplyChannel(row[i], a)
			row[i+1] = unpremultiplyChannel(row[i+1], a)
			row[i+2] = unpremultiplyChannel(row[i+2], a)
		}
	}
}

func unpremultiplyChannel(c, a uint8) uint8 {
	v := (uint32(c) * 255) / uint32(a)
	if v > 255 {
		v = 255
	}
	return uint8(v)
}

package render

import (
	"fmt"
	"image"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/tileserver/internal/geo"
)

// parameterization holds the computed render/crop geometry for one request.
type parameterization struct {
	mlglZ float64

	renderWidthPx  int
	renderHeightPx int

	cropOffsetX int
	cropOffsetY int
	cropW       int
	cropH       int

	upscaleFromZoom0 bool
}

// computeParams derives the renderer parameterization per the zoom-0
// 2x-oversample rule and the tileMargin edge-padding rule; the two never
// apply to the same request since tileMargin padding only triggers for
// z > 2.
func computeParams(z, lon, lat float64, w, h, scale, tileMargin int) parameterization {
	p := parameterization{mlglZ: max(0, z-1)}

	switch {
	case z == 0:
		p.renderWidthPx = 2 * w * scale
		p.renderHeightPx = 2 * h * scale
		p.cropW, p.cropH = w*scale, h*scale
		p.upscaleFromZoom0 = true

	case z > 2 && tileMargin > 0:
		paddedW, paddedH := w+2*tileMargin, h+2*tileMargin
		p.renderWidthPx = paddedW * scale
		p.renderHeightPx = paddedH * scale
		p.cropW, p.cropH = w*scale, h*scale
		p.cropOffsetX = tileMargin * scale
		p.cropOffsetY = int((float64(tileMargin) + yoffset(z, lon, lat, h)) * float64(scale))

	default:
		p.renderWidthPx = w * scale
		p.renderHeightPx = h * scale
		p.cropW, p.cropH = w*scale, h*scale
	}

	return p
}

// yoffset is the vertical overshoot of an h-tall window centered on
// (lon,lat) beyond the world at zoom z, clamped to keep the window from
// sampling past the poles; zero when the window fits entirely inside the
// world. Mirrors the Overlay Rasterizer's canvas center clamp so the base
// render and the overlay stay aligned.
func yoffset(z, lon, lat float64, h int) float64 {
	centerPx := geo.Px(geo.Point{Lon: lon, Lat: lat}, z)
	worldH := geo.WorldSize(z)
	half := float64(h) / 2

	clamped := centerPx.Y
	switch {
	case clamped-half < 0:
		clamped = half
	case clamped+half > worldH:
		clamped = worldH - half
	default:
		return 0
	}
	return centerPx.Y - clamped
}

// extract crops raw to this parameterization's window, downscaling the
// zoom-0 double-size render back to its nominal size. Uses gift, the same
// image-filter pipeline the base repo uses for its own resize passes.
func (p parameterization) extract(raw *image.NRGBA) (*image.NRGBA, error) {
	bounds := raw.Bounds()

	if p.upscaleFromZoom0 {
		if bounds.Dx() != p.renderWidthPx || bounds.Dy() != p.renderHeightPx {
			return nil, fmt.Errorf("renderer returned %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), p.renderWidthPx, p.renderHeightPx)
		}
		g := gift.New(gift.Resize(p.cropW, p.cropH, gift.LinearResampling))
		dst := image.NewNRGBA(g.Bounds(bounds))
		g.Draw(dst, raw)
		return dst, nil
	}

	cropRect := image.Rect(p.cropOffsetX, p.cropOffsetY, p.cropOffsetX+p.cropW, p.cropOffsetY+p.cropH)
	if !cropRect.In(bounds) {
		return nil, fmt.Errorf("crop region %v falls outside rendered buffer %v", cropRect, bounds)
	}

	g := gift.New(gift.Crop(cropRect))
	dst := image.NewNRGBA(g.Bounds(bounds))
	g.Draw(dst, raw)
	return dst, nil
}

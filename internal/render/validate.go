package render

import (
	"math"

	"github.com/MeKo-Tech/tileserver/internal/errs"
)

const defaultMaxSize = 2048

var allowedFormats = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

func validate(req Request) error {
	if math.IsNaN(req.Lon) || math.IsNaN(req.Lat) {
		return errs.New(errs.KindBadRequest, "lon/lat must not be NaN")
	}
	if math.Abs(req.Lon) > 180 {
		return errs.New(errs.KindBadRequest, "lon out of range")
	}
	if math.Abs(req.Lat) > 85.06 {
		return errs.New(errs.KindBadRequest, "lat out of range")
	}

	if req.Width <= 0 || req.Height <= 0 {
		return errs.New(errs.KindBadRequest, "width and height must be positive")
	}

	maxSize := req.MaxSize
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	scale := req.Scale
	if scale <= 0 {
		scale = 1
	}
	if max(req.Width, req.Height)*scale > maxSize {
		return errs.New(errs.KindBadRequest, "requested size exceeds the maximum")
	}

	if !allowedFormats[req.Format] {
		return errs.New(errs.KindBadRequest, "unsupported format")
	}

	return nil
}

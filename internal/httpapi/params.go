package httpapi

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/overlay"
)

var (
	// y123@2x.png / y123.png
	tileSuffixRe = regexp.MustCompile(`^([0-9]+)(?:@([1-9])x)?\.([A-Za-z]+)$`)
	// WxH@Nx.format
	sizeSuffixRe = regexp.MustCompile(`^([0-9]+)x([0-9]+)(?:@([1-9])x)?\.([A-Za-z]+)$`)
)

func parseTileSuffix(seg string) (y, scale int, format string, ok bool) {
	m := tileSuffixRe.FindStringSubmatch(seg)
	if m == nil {
		return 0, 0, "", false
	}
	y, _ = strconv.Atoi(m[1])
	scale = 1
	if m[2] != "" {
		scale, _ = strconv.Atoi(m[2])
	}
	return y, scale, strings.ToLower(m[3]), true
}

func parseSizeSuffix(seg string) (w, h, scale int, format string, ok bool) {
	m := sizeSuffixRe.FindStringSubmatch(seg)
	if m == nil {
		return 0, 0, 0, "", false
	}
	w, _ = strconv.Atoi(m[1])
	h, _ = strconv.Atoi(m[2])
	scale = 1
	if m[3] != "" {
		scale, _ = strconv.Atoi(m[3])
	}
	return w, h, scale, strings.ToLower(m[4]), true
}

// lowercasedQuery returns r.URL.Query() with every key lowercased, as the
// WMS-style front door requires.
func lowercasedQuery(r *http.Request) map[string][]string {
	out := make(map[string][]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		out[strings.ToLower(k)] = v
	}
	return out
}

func queryGet(q map[string][]string, key string) string {
	if v := q[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func isTruthy(v string) bool { return v == "1" || v == "true" }

// overlayParams collects the parsed paths/markers and the request-level
// style defaults/flags shared by every overlay-capable endpoint.
type overlayParams struct {
	paths           []overlay.Path
	markers         []overlay.Marker
	attributionText string
	padding         float64
	maxZoom         float64
	hasMaxZoom      bool
}

func parseOverlayParams(q map[string][]string) (overlayParams, error) {
	latLng := isTruthy(queryGet(q, "latlng"))

	defaults := overlay.Style{
		Fill:     queryGet(q, "fill"),
		Stroke:   queryGet(q, "stroke"),
		Border:   queryGet(q, "border"),
		LineCap:  queryGet(q, "linecap"),
		LineJoin: queryGet(q, "linejoin"),
	}
	if w := queryGet(q, "width"); w != "" {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return overlayParams{}, errs.Wrap(errs.KindBadRequest, err, "httpapi: parse width")
		}
		defaults.Width = f
	}
	if bw := queryGet(q, "borderwidth"); bw != "" {
		f, err := strconv.ParseFloat(bw, 64)
		if err != nil {
			return overlayParams{}, errs.Wrap(errs.KindBadRequest, err, "httpapi: parse borderwidth")
		}
		defaults.BorderWidth = f
	}

	var paths []overlay.Path
	for _, raw := range q["path"] {
		p, err := overlay.ParsePath(raw, latLng)
		if err != nil {
			return overlayParams{}, err
		}
		p.Style = mergeStyle(p.Style, defaults)
		paths = append(paths, p)
	}

	var markers []overlay.Marker
	for _, raw := range q["marker"] {
		m, err := overlay.ParseMarker(raw, latLng)
		if err != nil {
			return overlayParams{}, err
		}
		markers = append(markers, m)
	}

	// attributionText is the one camelCase query key; the WMS front door's
	// case folding delivers it lowercased.
	attribution := queryGet(q, "attributionText")
	if attribution == "" {
		attribution = queryGet(q, "attributiontext")
	}

	out := overlayParams{
		paths:           paths,
		markers:         markers,
		attributionText: attribution,
		padding:         0.1,
	}

	if p := queryGet(q, "padding"); p != "" {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return overlayParams{}, errs.Wrap(errs.KindBadRequest, err, "httpapi: parse padding")
		}
		out.padding = f
	}
	if mz := queryGet(q, "maxzoom"); mz != "" {
		f, err := strconv.ParseFloat(mz, 64)
		if err != nil {
			return overlayParams{}, errs.Wrap(errs.KindBadRequest, err, "httpapi: parse maxzoom")
		}
		out.maxZoom = f
		out.hasMaxZoom = true
	}

	return out, nil
}

// mergeStyle fills any zero-value field of s from defaults, so a query's
// fill/stroke/width/... only apply where a path's own tokens left a field
// unset.
func mergeStyle(s, defaults overlay.Style) overlay.Style {
	if s.Fill == "" {
		s.Fill = defaults.Fill
	}
	if s.Stroke == "" {
		s.Stroke = defaults.Stroke
	}
	if s.Width == 0 {
		s.Width = defaults.Width
	}
	if s.Border == "" {
		s.Border = defaults.Border
	}
	if s.BorderWidth == 0 {
		s.BorderWidth = defaults.BorderWidth
	}
	if s.LineCap == "" {
		s.LineCap = defaults.LineCap
	}
	if s.LineJoin == "" {
		s.LineJoin = defaults.LineJoin
	}
	return s
}

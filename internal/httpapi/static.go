package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/geo"
	"github.com/MeKo-Tech/tileserver/internal/render"
)

// mercatorMetersToLonLat inverts raw EPSG:3857 meters back to WGS84, the
// conversion a "raw" static request needs before the render pipeline's own
// WGS84-in forward projection runs.
func mercatorMetersToLonLat(x, y float64) (lon, lat float64) {
	ll := project.Mercator.ToWGS84(orb.Point{x, y})
	return ll[0], ll[1]
}

// staticSpec is the parsed <center> or <bbox> path segment.
type staticSpec struct {
	isBBox         bool
	lon, lat, zoom float64
	bearing, pitch float64
	bbox           geo.BBox
}

// parseStaticSpec parses "lon,lat,z[@bearing[,pitch]]" or
// "minx,miny,maxx,maxy".
func parseStaticSpec(spec string) (staticSpec, error) {
	main, opt, hasOpt := strings.Cut(spec, "@")
	fields := strings.Split(main, ",")

	switch len(fields) {
	case 3:
		lon, errLon := strconv.ParseFloat(fields[0], 64)
		lat, errLat := strconv.ParseFloat(fields[1], 64)
		z, errZ := strconv.ParseFloat(fields[2], 64)
		if errLon != nil || errLat != nil || errZ != nil {
			return staticSpec{}, errs.New(errs.KindBadRequest, "httpapi: malformed center spec")
		}
		s := staticSpec{lon: lon, lat: lat, zoom: z}
		if hasOpt {
			parts := strings.Split(opt, ",")
			bearing, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				return staticSpec{}, errs.Wrap(errs.KindBadRequest, err, "httpapi: parse bearing")
			}
			s.bearing = bearing
			if len(parts) > 1 {
				pitch, err := strconv.ParseFloat(parts[1], 64)
				if err != nil {
					return staticSpec{}, errs.Wrap(errs.KindBadRequest, err, "httpapi: parse pitch")
				}
				s.pitch = pitch
			}
		}
		return s, nil
	case 4:
		var vals [4]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return staticSpec{}, errs.New(errs.KindBadRequest, "httpapi: malformed bbox spec")
			}
			vals[i] = v
		}
		return staticSpec{isBBox: true, bbox: geo.BBox(vals)}, nil
	default:
		return staticSpec{}, errs.New(errs.KindBadRequest, "httpapi: spec must have 3 (center) or 4 (bbox) fields")
	}
}

// makeStaticHandler serves GET /:id/static/[raw/]<spec>/<wh>.:format.
func (h *Handler) makeStaticHandler(raw bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := h.lookup(w, r)
		if !ok {
			return
		}

		vars := mux.Vars(r)
		spec, err := parseStaticSpec(vars["spec"])
		if err != nil {
			writeRenderErr(w, err)
			return
		}
		width, height, scale, format, ok := parseSizeSuffix(vars["wh"])
		if !ok {
			writeError(w, http.StatusBadRequest, "malformed size/scale/format suffix")
			return
		}

		ov, err := parseOverlayParams(r.URL.Query())
		if err != nil {
			writeRenderErr(w, err)
			return
		}

		req := buildStaticRequest(spec, raw, width, height, scale, format, ov)
		req.IconOptions = h.IconOptions
		req.HTTPClient = h.HTTPClient

		res, err := render.Respond(r.Context(), b, req, h.Logger)
		if err != nil {
			writeRenderErr(w, err)
			return
		}
		writeImage(w, r, res)
	}
}

// buildStaticRequest resolves a parsed spec (center or bbox, raw or
// projected) plus overlay params into a render.Request. A bbox spec has its
// zoom solved by CalcZForBBox, capped by maxzoom when the query sets it.
func buildStaticRequest(spec staticSpec, raw bool, width, height, scale int, format string, ov overlayParams) render.Request {
	req := render.Request{
		Mode: "static", Width: width, Height: height, Scale: scale, Format: format,
		Paths: ov.paths, Markers: ov.markers, AttributionText: ov.attributionText,
	}

	if !spec.isBBox {
		lon, lat := spec.lon, spec.lat
		if raw {
			lon, lat = mercatorMetersToLonLat(lon, lat)
		}
		req.Lon, req.Lat, req.Zoom = lon, lat, spec.zoom
		req.Bearing, req.Pitch = spec.bearing, spec.pitch
		return req
	}

	bbox := spec.bbox
	if raw {
		minLon, minLat := mercatorMetersToLonLat(bbox[0], bbox[1])
		maxLon, maxLat := mercatorMetersToLonLat(bbox[2], bbox[3])
		bbox = geo.BBox{minLon, minLat, maxLon, maxLat}
	}

	center := bbox.Center()
	zoom := geo.CalcZForBBox(bbox, width, height, ov.padding)
	if ov.hasMaxZoom && ov.maxZoom > 0 && zoom > ov.maxZoom {
		zoom = ov.maxZoom
	}

	req.Lon, req.Lat, req.Zoom = center.Lon, center.Lat, zoom
	return req
}

// handleStaticAuto serves GET /:id/static/auto/<wh>.:format, fitting the
// viewport to the union of every path point and marker location.
func (h *Handler) handleStaticAuto(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	width, height, scale, format, ok := parseSizeSuffix(vars["wh"])
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed size/scale/format suffix")
		return
	}

	ov, err := parseOverlayParams(r.URL.Query())
	if err != nil {
		writeRenderErr(w, err)
		return
	}

	var coords []geo.Point
	for _, p := range ov.paths {
		coords = append(coords, p.Points...)
	}
	for _, m := range ov.markers {
		coords = append(coords, m.Location)
	}
	if len(coords) == 0 {
		writeError(w, http.StatusBadRequest, "No coordinates provided")
		return
	}
	bbox := geo.BBoxOf(coords[0])
	for _, pt := range coords[1:] {
		bbox = bbox.ExpandPoint(pt)
	}

	center := bbox.Center()
	zoom := geo.CalcZForBBox(bbox, width, height, ov.padding)
	if ov.hasMaxZoom && ov.maxZoom > 0 && zoom > ov.maxZoom {
		zoom = ov.maxZoom
	}

	req := render.Request{
		Mode: "static", Zoom: zoom, Lon: center.Lon, Lat: center.Lat,
		Width: width, Height: height, Scale: scale, Format: format,
		Paths: ov.paths, Markers: ov.markers, AttributionText: ov.attributionText,
		IconOptions: h.IconOptions, HTTPClient: h.HTTPClient,
	}
	res, err := render.Respond(r.Context(), b, req, h.Logger)
	if err != nil {
		writeRenderErr(w, err)
		return
	}
	writeImage(w, r, res)
}

// handleStaticFrontDoor serves GET /:id/static/ with a WMS-style query
// string, always projecting raw Web-Mercator bbox coordinates.
func (h *Handler) handleStaticFrontDoor(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}

	q := lowercasedQuery(r)
	bboxRaw := queryGet(q, "bbox")
	if bboxRaw == "" {
		writeError(w, http.StatusBadRequest, "bbox parameter is required")
		return
	}
	spec, err := parseStaticSpec(bboxRaw)
	if err != nil || !spec.isBBox {
		writeError(w, http.StatusBadRequest, "malformed bbox parameter")
		return
	}

	width, err := strconv.Atoi(queryGet(q, "width"))
	if err != nil || width <= 0 {
		writeError(w, http.StatusBadRequest, "invalid width parameter")
		return
	}
	height, err := strconv.Atoi(queryGet(q, "height"))
	if err != nil || height <= 0 {
		writeError(w, http.StatusBadRequest, "invalid height parameter")
		return
	}
	scale := 1
	if s := queryGet(q, "scale"); s != "" {
		scale, err = strconv.Atoi(s)
		if err != nil || scale < 1 {
			writeError(w, http.StatusBadRequest, "invalid scale parameter")
			return
		}
	}
	format := strings.TrimPrefix(queryGet(q, "format"), "image/")
	if format == "" {
		format = "png"
	}

	ov, err := parseOverlayParams(q)
	if err != nil {
		writeRenderErr(w, err)
		return
	}

	req := buildStaticRequest(spec, true, width, height, scale, format, ov)
	req.IconOptions = h.IconOptions
	req.HTTPClient = h.HTTPClient

	res, err := render.Respond(r.Context(), b, req, h.Logger)
	if err != nil {
		writeRenderErr(w, err)
		return
	}
	writeImage(w, r, res)
}

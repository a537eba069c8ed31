package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MeKo-Tech/tileserver/internal/geo"
	"github.com/MeKo-Tech/tileserver/internal/render"
)

// handleTile serves GET /:id/:z/:x/:y[@Nx].:format.
func (h *Handler) handleTile(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	z, err := strconv.Atoi(vars["z"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed zoom")
		return
	}
	x, err := strconv.Atoi(vars["x"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed x coordinate")
		return
	}
	y, scale, format, ok := parseTileSuffix(vars["yfmt"])
	if !ok {
		writeError(w, http.StatusBadRequest, "malformed tile y/scale/format suffix")
		return
	}

	n := 1 << uint(z)
	if z < 0 || z > 22 || x < 0 || x >= n || y < 0 || y >= n {
		writeError(w, http.StatusNotFound, "tile coordinates out of bounds")
		return
	}

	lon, lat := tileCenter(z, x, y)

	ov, err := parseOverlayParams(r.URL.Query())
	if err != nil {
		writeRenderErr(w, err)
		return
	}

	req := render.Request{
		Mode:            "tile",
		Zoom:            float64(z),
		Lon:             lon,
		Lat:             lat,
		Width:           256,
		Height:          256,
		Scale:           scale,
		Format:          format,
		Paths:           ov.paths,
		Markers:         ov.markers,
		IconOptions:     h.IconOptions,
		HTTPClient:      h.HTTPClient,
		AttributionText: ov.attributionText,
	}

	res, err := render.Respond(r.Context(), b, req, h.Logger)
	if err != nil {
		writeRenderErr(w, err)
		return
	}
	writeImage(w, r, res)
}

// tileCenter returns the WGS84 center of tile (z,x,y) in XYZ (Google/OSM)
// scheme, the scheme every tile endpoint serves under.
func tileCenter(z, x, y int) (lon, lat float64) {
	p := geo.Inverse(geo.PixelPoint{
		X: (float64(x) + 0.5) * 256,
		Y: (float64(y) + 0.5) * 256,
	}, float64(z))
	return p.Lon, p.Lat
}

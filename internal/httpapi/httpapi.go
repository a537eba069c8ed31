// Package httpapi exposes the tile server's HTTP surface: tile and static
// map endpoints, the WMS-style front door, and per-style tileJSON, all
// dispatched against a style.Registry and the render pipeline.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MeKo-Tech/tileserver/internal/overlay"
	"github.com/MeKo-Tech/tileserver/internal/style"
)

// Handler wires the registry and render pipeline into gorilla/mux routes.
type Handler struct {
	Registry    *style.Registry
	IconOptions overlay.IconOptions
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// NewHandler constructs a Handler against reg. opts/client may be zero
// values; Logger defaults to slog.Default() when nil.
func NewHandler(reg *style.Registry, opts overlay.IconOptions, client *http.Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Registry: reg, IconOptions: opts, HTTPClient: client, Logger: logger}
}

// RegisterRoutes attaches every endpoint to r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/{z:[0-9]+}/{x:[0-9]+}/{yfmt}", h.handleTile).Methods(http.MethodGet)

	// More specific routes are registered first: gorilla/mux dispatches to
	// the first route whose pattern matches.
	r.HandleFunc("/{id}/static/auto/{wh}", h.handleStaticAuto).Methods(http.MethodGet)
	r.HandleFunc("/{id}/static/raw/{spec}/{wh}", h.makeStaticHandler(true)).Methods(http.MethodGet)
	r.HandleFunc("/{id}/static/{spec}/{wh}", h.makeStaticHandler(false)).Methods(http.MethodGet)
	r.HandleFunc("/{id}/static/", h.handleStaticFrontDoor).Methods(http.MethodGet)
	r.HandleFunc("/{id}.json", h.handleTileJSON).Methods(http.MethodGet)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*style.Binding, bool) {
	id := mux.Vars(r)["id"]
	b, ok := h.Registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown style id")
		return nil, false
	}
	return b, true
}

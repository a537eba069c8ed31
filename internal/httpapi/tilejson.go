package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// handleTileJSON serves GET /:id.json, rewriting the registered style
// document's "tiles" entry to an absolute URL under the binding's public
// URL override, or this request's own host when none is configured.
func (h *Handler) handleTileJSON(w http.ResponseWriter, r *http.Request) {
	b, ok := h.lookup(w, r)
	if !ok {
		return
	}

	doc := cloneDoc(b.TileJSON)
	base := b.PublicURL
	if base == "" {
		base = requestBaseURL(r)
	}
	doc["tiles"] = []string{fmt.Sprintf("%s/%s/{z}/{x}/{y}.png", strings.TrimSuffix(base, "/"), b.ID)}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}

// requestBaseURL reconstructs the base URL this server is reachable under
// from the incoming request's own scheme and host, for bindings without a
// configured public URL override.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

// cloneDoc makes a shallow top-level copy so rewriting "tiles" doesn't
// mutate the binding's own stored document, which other requests read
// concurrently.
func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	return out
}

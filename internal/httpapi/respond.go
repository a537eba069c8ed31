package httpapi

import (
	"net/http"

	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/render"
)

func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

// writeRenderErr maps a render/style error to its taxonomy status code.
func writeRenderErr(w http.ResponseWriter, err error) {
	writeError(w, errs.HTTPStatus(errs.KindOf(err)), err.Error())
}

// writeImage honors If-Modified-Since (unless the request disables caching
// with Cache-Control: no-cache) before writing the encoded body.
func writeImage(w http.ResponseWriter, r *http.Request, res render.Result) {
	if r.Header.Get("Cache-Control") != "no-cache" {
		if since, err := http.ParseTime(r.Header.Get("If-Modified-Since")); err == nil {
			if !res.LastModified.IsZero() && !res.LastModified.After(since) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}
	if !res.LastModified.IsZero() {
		w.Header().Set("Last-Modified", res.LastModified.UTC().Format(http.TimeFormat))
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}

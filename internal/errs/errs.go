// Package errs defines the error taxonomy shared by every request-facing
// package in the tile server.
package errs

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Kind is one of the taxonomy buckets from the error handling design.
type Kind int

const (
	// KindBadRequest marks invalid geographic inputs, sizes, or formats.
	KindBadRequest Kind = iota
	// KindNotFound marks an unknown style id or an out-of-range tile.
	KindNotFound
	// KindUpstreamEmpty marks an archive lookup that yielded no data.
	KindUpstreamEmpty
	// KindUpstreamError marks an archive read failure, HTTP non-2xx, or
	// decompression failure.
	KindUpstreamError
	// KindRenderError marks a renderer callback failure.
	KindRenderError
	// KindFatalConfig marks a style registration that cannot proceed.
	KindFatalConfig
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindUpstreamEmpty:
		return "upstream_empty"
	case KindUpstreamError:
		return "upstream_error"
	case KindRenderError:
		return "render_error"
	case KindFatalConfig:
		return "fatal_config"
	default:
		return "unknown"
	}
}

// Error wraps an eris-traced error with a taxonomy Kind.
type Error struct {
	Kind Kind
	err  error
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

// New creates a taxonomy error with a fresh stack trace.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, err: eris.New(msg)}
}

// Wrap attaches a taxonomy Kind to an existing error, preserving its cause
// chain via eris so the original stack survives in logs.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, err: eris.Wrap(err, msg)}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindRenderError for
// untyped errors reaching the request boundary (the safest default: it maps
// to a 500 rather than silently returning 200).
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindRenderError
}

// HTTPStatus maps a Kind to the HTTP status code a handler should send when
// an error of this Kind reaches the request boundary.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindBadRequest:
		return 400
	case KindNotFound:
		return 404
	case KindRenderError, KindFatalConfig:
		return 500
	default:
		// KindUpstreamEmpty / KindUpstreamError never reach the HTTP layer:
		// the resolver converts them to synthesized empty responses.
		return 500
	}
}

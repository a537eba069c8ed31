package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfWrappedError(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(KindUpstreamError, base, "reading tile")

	if KindOf(err) != KindUpstreamError {
		t.Errorf("KindOf = %v, want KindUpstreamError", KindOf(err))
	}
	if !Is(err, KindUpstreamError) {
		t.Errorf("Is(KindUpstreamError) = false")
	}
	if Is(err, KindBadRequest) {
		t.Errorf("Is(KindBadRequest) should be false")
	}
}

func TestKindOfSurvivesFurtherWrapping(t *testing.T) {
	err := New(KindNotFound, "no such style")
	outer := fmt.Errorf("handling request: %w", err)

	if KindOf(outer) != KindNotFound {
		t.Errorf("KindOf through fmt wrap = %v, want KindNotFound", KindOf(outer))
	}
}

func TestKindOfUntypedDefaultsToRenderError(t *testing.T) {
	if KindOf(errors.New("mystery")) != KindRenderError {
		t.Errorf("untyped errors must default to KindRenderError")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(KindBadRequest, nil, "context") != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindBadRequest, 400},
		{KindNotFound, 404},
		{KindRenderError, 500},
		{KindFatalConfig, 500},
		{KindUpstreamEmpty, 500},
		{KindUpstreamError, 500},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.kind); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

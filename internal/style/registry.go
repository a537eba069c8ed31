package style

import (
	"context"
	"sync"

	"github.com/MeKo-Tech/tileserver/internal/errs"
	"github.com/MeKo-Tech/tileserver/internal/renderpool"
)

// defaultPoolMin/Max are indexed by pixel ratio s-1 (clamped to the last
// element for s beyond the table).
var (
	defaultPoolMin = []int{8, 4, 2}
	defaultPoolMax = []int{16, 8, 4}
)

func poolBound(table []int, s int) int {
	idx := s - 1
	if idx >= len(table) {
		idx = len(table) - 1
	}
	return table[idx]
}

// Registry holds every registered Style Binding, keyed by id. Registration
// and removal are the only writers; every request path only reads.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]*Binding)}
}

// Get returns the binding for id, or (nil, false) if unregistered.
func (r *Registry) Get(id string) (*Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	return b, ok
}

// Register parses doc via loader, constructs the renderer pools for
// maxScaleFactor pixel ratios, and stores the resulting Binding under id.
// renderFactory builds a tile-mode renderer for scale s; staticFactory
// builds a static-mode renderer for scale s.
func (r *Registry) Register(
	ctx context.Context,
	id string,
	doc map[string]any,
	loader *Loader,
	maxScaleFactor int,
	renderFactory func(scale int) renderpool.Factory,
	staticFactory func(scale int) renderpool.Factory,
) (*Binding, error) {
	if maxScaleFactor < 1 || maxScaleFactor > 9 {
		return nil, errs.New(errs.KindFatalConfig, "style: maxScaleFactor out of range [1,9]")
	}

	b, err := loader.Load(ctx, id, doc)
	if err != nil {
		return nil, err
	}

	b.maxScaleFactor = maxScaleFactor
	b.Renderers = make([]*renderpool.Pool, maxScaleFactor)
	b.RenderersStatic = make([]*renderpool.Pool, maxScaleFactor)

	for s := 1; s <= maxScaleFactor; s++ {
		min, max := poolBound(defaultPoolMin, s), poolBound(defaultPoolMax, s)
		b.Renderers[s-1] = renderpool.New(min, max, renderFactory(s))
		b.RenderersStatic[s-1] = renderpool.New(min, max, staticFactory(s))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = b
	return b, nil
}

// Remove closes and removes the binding for id, if present. Pools are
// drained synchronously; any renderer currently checked out by an in-flight
// request is destroyed when it is released rather than blocked on here.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	b, ok := r.bindings[id]
	if ok {
		delete(r.bindings, id)
	}
	r.mu.Unlock()

	if ok {
		b.Close()
	}
}

// IDs returns every registered style id.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.bindings))
	for id := range r.bindings {
		ids = append(ids, id)
	}
	return ids
}

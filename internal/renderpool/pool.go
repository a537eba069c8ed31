// Package renderpool implements a generic bounded pool of renderer
// instances, with acquire/release discipline and graceful teardown.
package renderpool

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/MeKo-Tech/tileserver/internal/errs"
)

// FetchResult is what a resource fetch returns to a renderer: raw bytes
// plus optional conditional-response metadata.
type FetchResult struct {
	Data     []byte
	Modified string
	Expires  string
	ETag     string
}

// ResourceFetcher satisfies a renderer's external resource callbacks
// (tiles, glyph ranges, sprites, remote HTTP URLs) during a render.
type ResourceFetcher func(url string) (FetchResult, error)

// RenderParams is the render parameterization a Renderer executes.
type RenderParams struct {
	Zoom    float64
	CenterX float64 // WGS84 degrees, or style-projected units
	CenterY float64
	Bearing float64
	Pitch   float64
	Width   int
	Height  int

	// SRS is the style's declared spatial reference (a proj4 string);
	// empty means Web-Mercator.
	SRS string
}

// Renderer is satisfied by a headless vector-map renderer instance bound to
// one pixel ratio. SetResourceFetcher registers the callback the renderer
// invokes for external resources during Render; Factory takes no fetcher,
// so the render pipeline registers it on the instance before each render.
type Renderer interface {
	SetResourceFetcher(fetch ResourceFetcher)
	Render(ctx context.Context, p RenderParams) (*image.NRGBA, error)
	Close() error
}

// Factory constructs a new Renderer instance pre-bound to a pixel ratio.
type Factory func() (Renderer, error)

// Pool is a bounded pool of Renderer instances for one (pixel-ratio, mode)
// combination. It grows lazily up to max and never shrinks below the
// instances already created; idle instances beyond min are still kept
// until Close, trading memory for avoiding renderer construction cost
// (construction is expensive: it loads and compiles a style document).
type Pool struct {
	create Factory

	sem   chan struct{} // one slot per instance ever created, up to max
	items chan Renderer // idle instances ready to hand out

	mu      sync.Mutex
	created int
	max     int

	closed atomic.Bool
}

// New constructs a pool that creates renderer instances lazily as demand
// requires, up to max concurrently live instances. min is accepted for
// parity with the bounded-pool contract but this implementation does not
// eagerly pre-warm: the first min acquires simply pay renderer-construction
// cost inline, same as any acquire beyond min.
func New(min, max int, create Factory) *Pool {
	if max < min {
		max = min
	}
	if max < 1 {
		max = 1
	}
	return &Pool{
		create: create,
		sem:    make(chan struct{}, max),
		items:  make(chan Renderer, max),
		max:    max,
	}
}

// Acquire reserves a renderer instance, blocking until one is available or
// ctx is cancelled. Every successful Acquire must be matched by exactly one
// Release, including on the caller's error paths.
func (p *Pool) Acquire(ctx context.Context) (Renderer, error) {
	if p.closed.Load() {
		return nil, errs.New(errs.KindRenderError, "renderpool: acquire on closed pool")
	}

	select {
	case r := <-p.items:
		return r, nil
	default:
	}

	select {
	case p.sem <- struct{}{}:
		r, err := p.create()
		if err != nil {
			<-p.sem
			return nil, errs.Wrap(errs.KindRenderError, err, "renderpool: create renderer")
		}
		p.mu.Lock()
		p.created++
		p.mu.Unlock()
		return r, nil
	case <-ctx.Done():
		return nil, errs.Wrap(errs.KindRenderError, ctx.Err(), "renderpool: acquire cancelled")
	case r := <-p.items:
		return r, nil
	}
}

// Release returns r to the pool. Safe to call after Close (the instance is
// simply destroyed instead of recycled).
func (p *Pool) Release(r Renderer) {
	if r == nil {
		return
	}
	if p.closed.Load() {
		p.destroy(r)
		return
	}
	select {
	case p.items <- r:
		// A Close racing this Release may have finished draining before the
		// send above landed; re-check and drain so the instance isn't
		// stranded in a closed pool.
		if p.closed.Load() {
			select {
			case r2 := <-p.items:
				p.destroy(r2)
			default:
			}
		}
	default:
		// pool buffer is momentarily full (more concurrent releases than
		// max, which Acquire's semaphore should prevent); destroy instead
		// of blocking the releasing goroutine.
		p.destroy(r)
	}
}

// destroy closes r and frees its semaphore slot, permanently reducing the
// pool's live instance count by one.
func (p *Pool) destroy(r Renderer) {
	r.Close()
	<-p.sem
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
}

// Close drains the pool, destroying every idle instance. After Close,
// Acquire fails. Instances currently checked out are destroyed as they are
// Released rather than blocked on here.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	for {
		select {
		case r := <-p.items:
			p.destroy(r)
		default:
			return
		}
	}
}

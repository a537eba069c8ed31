package renderpool

import (
	"context"
	"image"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRenderer struct {
	closed atomic.Bool
}

func (f *fakeRenderer) SetResourceFetcher(ResourceFetcher) {}
func (f *fakeRenderer) Render(context.Context, RenderParams) (*image.NRGBA, error) {
	return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
}
func (f *fakeRenderer) Close() error {
	f.closed.Store(true)
	return nil
}

func TestPoolAcquireReleaseRecycles(t *testing.T) {
	var created int
	p := New(1, 2, func() (Renderer, error) {
		created++
		return &fakeRenderer{}, nil
	})
	defer p.Close()

	ctx := context.Background()
	r1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(r1)

	r2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(r2)

	if created != 1 {
		t.Errorf("created = %d, want 1 (second acquire should recycle)", created)
	}
}

func TestPoolAcquireBlocksAtMax(t *testing.T) {
	p := New(1, 1, func() (Renderer, error) { return &fakeRenderer{}, nil })
	defer p.Close()

	ctx := context.Background()
	r1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	ctx2, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx2); err == nil {
		t.Errorf("expected Acquire to block and time out at max=1")
	}

	p.Release(r1)
}

func TestPoolAcquireAfterCloseFails(t *testing.T) {
	p := New(1, 1, func() (Renderer, error) { return &fakeRenderer{}, nil })
	p.Close()

	if _, err := p.Acquire(context.Background()); err == nil {
		t.Errorf("expected Acquire to fail after Close")
	}
}

func TestPoolCloseDestroysIdleInstances(t *testing.T) {
	p := New(1, 1, func() (Renderer, error) { return &fakeRenderer{}, nil })

	r, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	fr := r.(*fakeRenderer)
	p.Release(r)

	p.Close()
	if !fr.closed.Load() {
		t.Errorf("expected idle instance to be destroyed on Close")
	}
}

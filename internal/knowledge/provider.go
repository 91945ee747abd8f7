package knowledge

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Source yields the current Company record.
type Source interface {
	Get(ctx context.Context) Company
}

// Provider caches the Index for the process lifetime. Concurrent callers
// that find no cached index share a single build.
type Provider struct {
	source Source
	group  singleflight.Group

	mu         sync.RWMutex
	index      *Index
	generation uint64
}

// NewProvider creates an empty provider.
func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// Index returns the cached index, building it once if needed.
func (p *Provider) Index(ctx context.Context) *Index {
	p.mu.RLock()
	ix := p.index
	p.mu.RUnlock()
	if ix != nil {
		return ix
	}

	v, _, _ := p.group.Do("index", func() (any, error) {
		p.mu.RLock()
		cached, gen := p.index, p.generation
		p.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		built := NewIndex(p.source.Get(context.WithoutCancel(ctx)))
		p.mu.Lock()
		// An invalidation during the build means the data may be stale.
		if p.generation == gen && p.index == nil {
			p.index = built
		}
		p.mu.Unlock()
		return built, nil
	})
	return v.(*Index)
}

// Invalidate drops the cached index so the next caller rebuilds it.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.index = nil
	p.generation++
	p.mu.Unlock()
	p.group.Forget("index")
}

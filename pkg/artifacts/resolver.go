package artifacts

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

// Resolver dispatches packet URIs to the store registered for their scheme.
// It is safe for concurrent use.
type Resolver struct {
	mu     sync.RWMutex
	stores map[string]Store
}

func NewResolver(stores ...Store) *Resolver {
	r := &Resolver{stores: make(map[string]Store)}
	for _, s := range stores {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any store with the same scheme.
func (r *Resolver) Register(s Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.Scheme()] = s
}

// Fetch returns the packet at uri.
func (r *Resolver) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty packet uri", ErrNotFound)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse packet uri: %w", err)
	}

	r.mu.RLock()
	s, ok := r.stores[u.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return s.Get(ctx, uri)
}

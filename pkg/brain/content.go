package brain

import (
	"context"
	"fmt"
	"sync"
)

// ContentFetcher returns the human-readable text behind a concept. The graph
// never stores that text; its owner does.
type ContentFetcher interface {
	FetchContent(ctx context.Context, c Concept) (string, error)
}

// ContentFetcherFunc adapts a function to ContentFetcher.
type ContentFetcherFunc func(ctx context.Context, c Concept) (string, error)

// FetchContent calls f.
func (f ContentFetcherFunc) FetchContent(ctx context.Context, c Concept) (string, error) {
	return f(ctx, c)
}

// ContentResolver dispatches content lookups by concept kind.
type ContentResolver struct {
	mu       sync.RWMutex
	fetchers map[Kind]ContentFetcher
}

// NewContentResolver creates an empty resolver.
func NewContentResolver() *ContentResolver {
	return &ContentResolver{fetchers: make(map[Kind]ContentFetcher)}
}

// Register installs f as the fetcher for kind, replacing any previous one.
func (r *ContentResolver) Register(kind Kind, f ContentFetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[kind] = f
}

// RegisterAll installs f for every kind.
func (r *ContentResolver) RegisterAll(f ContentFetcher) {
	for _, k := range Kinds {
		r.Register(k, f)
	}
}

// Fetch returns the content for c from the fetcher registered for c.Kind.
func (r *ContentResolver) Fetch(ctx context.Context, c Concept) (string, error) {
	r.mu.RLock()
	f, ok := r.fetchers[c.Kind]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w %q", ErrNoFetcher, c.Kind)
	}
	return f.FetchContent(ctx, c)
}

package syncfile

import (
	"context"
	"fmt"
	"sync"

	"github.com/harun/recall/pkg/brain"
)

// Source serves the content of the most recently loaded entries file. It
// implements brain.ContentFetcher so recall can attach bodies to activated
// concepts.
type Source struct {
	mu      sync.RWMutex
	content map[string]string
}

// NewSource creates an empty content source.
func NewSource() *Source {
	return &Source{content: make(map[string]string)}
}

// Replace swaps in the content of doc. Concepts without content are dropped.
func (s *Source) Replace(doc *Document) {
	content := make(map[string]string, len(doc.Concepts))
	for _, r := range doc.Concepts {
		if r.Content != "" {
			content[r.ID] = r.Content
		}
	}

	s.mu.Lock()
	s.content = content
	s.mu.Unlock()
}

// Len returns the number of concepts with content.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.content)
}

// FetchContent implements brain.ContentFetcher.
func (s *Source) FetchContent(_ context.Context, c brain.Concept) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.content[c.ID]
	if !ok {
		return "", fmt.Errorf("content for %s: %w", c.ID, brain.ErrNotFound)
	}
	return body, nil
}

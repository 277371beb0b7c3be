package brain

import (
	"context"

	"github.com/harun/recall/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultSeedsPerToken is how many title matches one prompt token may add.
const DefaultSeedsPerToken = 3

// FindSeeds picks seed ids for a free-text prompt by matching each
// significant token against concept titles. Results are deduplicated, keep
// token order and are capped at limit.
func (b *Brain) FindSeeds(ctx context.Context, prompt string, limit int) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.find_seeds", attribute.Int("limit", limit))
	defer span.End()

	if limit <= 0 {
		return nil, nil
	}

	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, token := range promptTokens(prompt) {
		matches, err := b.search(ctx, token, b.perToken)
		if err != nil {
			tracing.Fail(span, err)
			return nil, err
		}
		for _, c := range matches {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			ids = append(ids, c.ID)
			if len(ids) >= limit {
				return ids, nil
			}
		}
	}
	span.SetAttributes(attribute.Int("seeds", len(ids)))
	return ids, nil
}

// promptTokens returns the distinct words of prompt, in order.
func promptTokens(prompt string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range splitWords(prompt) {
		if seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// UnionSeeds merges seed lists, keeping first-seen order and dropping duplicates.
func UnionSeeds(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

package brain

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// AutoLinkMinWeight is the lexical overlap ratio needed to link two concepts.
	AutoLinkMinWeight = 0.2
	// significantWordLen is the length a word must exceed to count.
	significantWordLen = 4
	autoLinkBatch      = 500
)

// splitWords lowercases text, splits it on anything that is not a letter or digit
// and returns the words longer than four runes in order of appearance. Titles
// and prompts share it so "config-loader" means the same in both.
func splitWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > significantWordLen {
			out = append(out, f)
		}
	}
	return out
}

// significantWords is the set of words in a title.
func significantWords(text string) map[string]struct{} {
	ws := splitWords(text)
	set := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		set[w] = struct{}{}
	}
	return set
}

// overlapWeight is |a ∩ b| / max(|a|, |b|), or 0 when nothing overlaps.
func overlapWeight(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for w := range small {
		if _, ok := large[w]; ok {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(len(large))
}

type link struct {
	a, b   int
	weight float64
}

// AutoLink bootstraps symmetric edges between concepts whose titles share
// significant words. Pairs already connected in either direction are left
// alone. It is quadratic in the number of concepts and meant to run after a
// bulk Sync. Links are committed in batches, so cancellation keeps every
// batch written so far. It returns the number of linked pairs.
func (b *Brain) AutoLink(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.autolink")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, b.logger)
	start := time.Now()

	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()

	linked, err := b.autoLink(ctx)
	observability.RecordBrainAutoLink(time.Since(start), linked)
	b.refreshGauges(ctx)
	if err != nil {
		tracing.Fail(span, err)
		logger.Warn().Err(err).Int("linked", linked).Msg("Auto-link stopped early")
		return linked, err
	}

	span.SetAttributes(attribute.Int("linked", linked))
	logger.Info().
		Int("linked", linked).
		Dur("duration", time.Since(start)).
		Msg("Auto-link completed")
	return linked, nil
}

func (b *Brain) autoLink(ctx context.Context) (int, error) {
	db := b.store.db
	concepts, err := loadConcepts(ctx, db)
	if err != nil {
		return 0, err
	}
	edges, err := loadEdges(ctx, db)
	if err != nil {
		return 0, err
	}
	connected := make(map[[2]int]bool, len(edges))
	for _, e := range edges {
		connected[[2]int{e.Source, e.Target}] = true
	}

	words := make([]map[string]struct{}, len(concepts))
	for i, c := range concepts {
		words[i] = significantWords(c.Title)
	}

	linked := 0
	var pending []link
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		now := b.now()
		err := b.store.withTx(ctx, func(tx *sql.Tx) error {
			for _, l := range pending {
				if err := setEdge(ctx, tx, l.a, l.b, l.weight, now); err != nil {
					return err
				}
				if err := setEdge(ctx, tx, l.b, l.a, l.weight, now); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		linked += len(pending)
		pending = pending[:0]
		return nil
	}

	for i := 0; i < len(concepts); i++ {
		if err := ctx.Err(); err != nil {
			return linked, err
		}
		if len(words[i]) == 0 {
			continue
		}
		for j := i + 1; j < len(concepts); j++ {
			a, c := concepts[i].Index, concepts[j].Index
			if connected[[2]int{a, c}] || connected[[2]int{c, a}] {
				continue
			}
			w := overlapWeight(words[i], words[j])
			if w < AutoLinkMinWeight {
				continue
			}
			pending = append(pending, link{a: a, b: c, weight: w})
			if len(pending) >= autoLinkBatch {
				if err := flush(); err != nil {
					return linked, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return linked, err
	}
	return linked, nil
}

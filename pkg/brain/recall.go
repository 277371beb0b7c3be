package brain

import (
	"context"

	"github.com/harun/recall/internal/tracing"
)

// RecallOptions tunes Recall.
type RecallOptions struct {
	Spread SpreadOptions
	// SeedLimit caps the seeds found from the prompt.
	SeedLimit int
	// ExtraSeeds are unioned with the prompt seeds, e.g. from a semantic search.
	ExtraSeeds []string
	// Learn applies HebbianLearn to the activated set with Strength.
	Learn    bool
	Strength float64
}

// DefaultRecallOptions returns options for a typical prompt lookup.
func DefaultRecallOptions() RecallOptions {
	return RecallOptions{
		Spread:    DefaultSpreadOptions(),
		SeedLimit: 10,
		Learn:     true,
		Strength:  DefaultHebbianStrength,
	}
}

// Memory is an activated concept together with its content.
type Memory struct {
	Concept    Concept `json:"concept"`
	Score      float64 `json:"score"`
	Content    string  `json:"content,omitempty"`
	Unexpected bool    `json:"unexpected,omitempty"`
}

// Recollection is what Recall found for a prompt.
type Recollection struct {
	Seeds    []string   `json:"seeds"`
	Memories []Memory   `json:"memories"`
	Gaps     []Gap      `json:"gaps,omitempty"`
	Paths    [][]string `json:"paths,omitempty"`
}

// Recall answers "what is relevant to this prompt": it finds seeds, spreads
// activation, attaches content from the resolver and, when opts.Learn is
// set, reinforces the activated set. Content lookups that fail are logged
// and the memory is returned without content.
func (b *Brain) Recall(ctx context.Context, prompt string, opts RecallOptions) (*Recollection, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.recall")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, b.logger)

	found, err := b.FindSeeds(ctx, prompt, opts.SeedLimit)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	seeds := UnionSeeds(found, opts.ExtraSeeds)

	rec := &Recollection{Seeds: seeds}
	if len(seeds) == 0 {
		return rec, nil
	}

	res, err := b.Spread(ctx, seeds, opts.Spread)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}
	rec.Gaps = res.Gaps
	rec.Paths = res.Paths

	unexpected := make(map[string]bool, len(res.Unexpected))
	for _, sc := range res.Unexpected {
		unexpected[sc.Concept.ID] = true
	}
	for _, sc := range res.Activated {
		m := Memory{Concept: sc.Concept, Score: sc.Score, Unexpected: unexpected[sc.Concept.ID]}
		content, err := b.resolver.Fetch(ctx, sc.Concept)
		if err != nil {
			logger.Debug().Err(err).Str("id", sc.Concept.ID).Msg("Content unavailable")
		} else {
			m.Content = content
		}
		rec.Memories = append(rec.Memories, m)
	}

	if opts.Learn && len(res.Activated) > 1 {
		if _, err := b.HebbianLearn(ctx, res.IDs(), opts.Strength); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

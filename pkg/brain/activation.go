package brain

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// PotentiationStep is the seed boost per prior activation.
	PotentiationStep = 0.1
	// PotentiationCap caps how many prior activations count toward the boost.
	PotentiationCap = 50

	// UnexpectedMinScore is the score a non-seed must exceed to be unexpected.
	UnexpectedMinScore = 0.3
	// MaxUnexpected caps the unexpected list.
	MaxUnexpected = 5
	// GapMinScore is the score both ends of a resonance gap must reach.
	GapMinScore = 0.25
	// MaxGaps caps the resonance gap list.
	MaxGaps = 5
)

// SpreadOptions tunes a Spread call.
type SpreadOptions struct {
	Depth     int     `json:"depth"`
	Decay     float64 `json:"decay"`
	Threshold float64 `json:"threshold"`
	// Limit caps the number of activated concepts. Zero or negative means no cap.
	Limit int `json:"limit"`
}

// DefaultSpreadOptions returns the options used when a caller has no preference.
func DefaultSpreadOptions() SpreadOptions {
	return SpreadOptions{
		Depth:     2,
		Decay:     0.5,
		Threshold: 0.1,
		Limit:     20,
	}
}

// potentiated returns the starting activation of a seed.
func potentiated(activationCount int) float64 {
	n := activationCount
	if n > PotentiationCap {
		n = PotentiationCap
	}
	if n < 0 {
		n = 0
	}
	return 1.0 + PotentiationStep*float64(n)
}

// Spread propagates activation from seedIDs along edge direction for
// opts.Depth hops, multiplying by opts.Decay at each hop, and ranks every
// concept by the best activation it reached. Every returned concept has its
// activation count incremented, so repeated calls are not idempotent.
func (b *Brain) Spread(ctx context.Context, seedIDs []string, opts SpreadOptions) (*ActivationResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.spread",
		attribute.Int("seeds", len(seedIDs)),
		attribute.Int("depth", opts.Depth),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, b.logger)
	start := time.Now()

	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	res, err := b.spread(ctx, seedIDs, opts)
	if err != nil {
		tracing.Fail(span, err)
		return nil, err
	}

	observability.RecordBrainSpread(time.Since(start), len(res.Activated))
	span.SetAttributes(attribute.Int("activated", len(res.Activated)))
	logger.Debug().
		Int("seeds", len(seedIDs)).
		Int("skipped", res.Skipped).
		Int("activated", len(res.Activated)).
		Int("unexpected", len(res.Unexpected)).
		Int("gaps", len(res.Gaps)).
		Msg("Spread completed")
	return res, nil
}

func (b *Brain) spread(ctx context.Context, seedIDs []string, opts SpreadOptions) (*ActivationResult, error) {
	res := &ActivationResult{}
	if len(seedIDs) == 0 {
		return res, nil
	}

	db := b.store.db
	next, err := getMetaInt(ctx, db, metaNextIndex)
	if err != nil {
		return nil, err
	}
	if next == 0 {
		return res, nil
	}
	capacity, err := getMetaInt(ctx, db, metaCapacity)
	if err != nil {
		return nil, err
	}

	act := make([]float64, capacity)
	// pred[i] is the index that delivered i's best activation; seeds point at themselves.
	pred := make([]int, capacity)
	for i := range pred {
		pred[i] = -1
	}
	seeds := make(map[int]bool, len(seedIDs))
	for _, id := range seedIDs {
		c, err := getConcept(ctx, db, id)
		if errors.Is(err, ErrNotFound) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		if seeds[c.Index] {
			continue
		}
		seeds[c.Index] = true
		act[c.Index] = potentiated(c.ActivationCount)
		pred[c.Index] = c.Index
	}
	if len(seeds) == 0 {
		return res, nil
	}

	best := make([]float64, capacity)
	copy(best, act)

	adjacency := make(map[int][]Edge)
	for hop := 0; hop < opts.Depth; hop++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nextAct := make([]float64, capacity)
		// strongest single contribution into each target during this hop
		from := make(map[int]int)
		strongest := make(map[int]float64)
		active := false

		for src, a := range act {
			if a == 0 {
				continue
			}
			edges, ok := adjacency[src]
			if !ok {
				edges, err = outEdges(ctx, db, src)
				if err != nil {
					return nil, err
				}
				adjacency[src] = edges
			}
			for _, e := range edges {
				if e.Target >= capacity {
					continue
				}
				contrib := opts.Decay * e.Weight * a
				if contrib == 0 {
					continue
				}
				nextAct[e.Target] += contrib
				active = true
				if contrib > strongest[e.Target] {
					strongest[e.Target] = contrib
					from[e.Target] = src
				}
			}
		}

		for i, v := range nextAct {
			if v > best[i] {
				best[i] = v
				if !seeds[i] {
					pred[i] = from[i]
				}
			}
		}
		act = nextAct
		if !active {
			break
		}
	}

	ranked := rankIndices(best, opts.Threshold, opts.Limit)
	if len(ranked) == 0 {
		return res, nil
	}

	concepts, err := conceptsByIndex(ctx, db, ranked)
	if err != nil {
		return nil, err
	}

	now := b.now()
	activatedIdx := make([]int, 0, len(ranked))
	for _, idx := range ranked {
		c, ok := concepts[idx]
		if !ok {
			continue
		}
		c.ActivationCount++
		t := now
		c.LastActivatedAt = &t
		concepts[idx] = c
		activatedIdx = append(activatedIdx, idx)
		res.Activated = append(res.Activated, ScoredConcept{Concept: c, Score: best[idx]})
	}

	for _, sc := range res.Activated {
		if len(res.Unexpected) >= MaxUnexpected {
			break
		}
		if sc.Score > UnexpectedMinScore && !seeds[sc.Concept.Index] {
			res.Unexpected = append(res.Unexpected, sc)
		}
	}

	res.Gaps, err = b.resonanceGaps(ctx, res.Activated)
	if err != nil {
		return nil, err
	}
	chains := traceChains(activatedIdx, pred, seeds)
	res.Paths, err = b.chainIDs(ctx, chains, concepts)
	if err != nil {
		return nil, err
	}

	err = b.store.withTx(ctx, func(tx *sql.Tx) error {
		return touchConcepts(ctx, tx, activatedIdx, now)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// rankIndices returns the indices with a positive score of at least
// threshold, highest first, ties by lower index, truncated to limit.
func rankIndices(scores []float64, threshold float64, limit int) []int {
	var ranked []int
	for i, s := range scores {
		if s > 0 && s >= threshold {
			ranked = append(ranked, i)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// resonanceGaps finds strongly co-activated pairs that share no edge in
// either direction, strongest product first.
func (b *Brain) resonanceGaps(ctx context.Context, activated []ScoredConcept) ([]Gap, error) {
	var strong []ScoredConcept
	for _, sc := range activated {
		if sc.Score >= GapMinScore {
			strong = append(strong, sc)
		}
	}
	if len(strong) < 2 {
		return nil, nil
	}

	indices := make([]int, len(strong))
	for i, sc := range strong {
		indices[i] = sc.Concept.Index
	}
	edges, err := edgesAmong(ctx, b.store.db, indices)
	if err != nil {
		return nil, err
	}
	linked := make(map[[2]int]bool, len(edges))
	for _, e := range edges {
		linked[[2]int{e.Source, e.Target}] = true
	}

	var gaps []Gap
	for i := 0; i < len(strong); i++ {
		for j := i + 1; j < len(strong); j++ {
			a, c := strong[i].Concept, strong[j].Concept
			if linked[[2]int{a.Index, c.Index}] || linked[[2]int{c.Index, a.Index}] {
				continue
			}
			gaps = append(gaps, Gap{A: a.ID, B: c.ID, Score: strong[i].Score * strong[j].Score})
		}
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Score > gaps[j].Score
	})
	if len(gaps) > MaxGaps {
		gaps = gaps[:MaxGaps]
	}
	return gaps, nil
}

// traceChains walks pred back from every activated non-seed to the seed it
// came from, returning seed-first index chains. Chains that loop are dropped.
func traceChains(activated []int, pred []int, seeds map[int]bool) [][]int {
	var chains [][]int
	for _, idx := range activated {
		if seeds[idx] {
			continue
		}
		visited := map[int]bool{}
		var chain []int
		cur := idx
		reached := false
		for cur >= 0 && !visited[cur] {
			visited[cur] = true
			chain = append(chain, cur)
			if seeds[cur] {
				reached = true
				break
			}
			cur = pred[cur]
		}
		if !reached {
			continue
		}
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		chains = append(chains, chain)
	}
	return chains
}

// chainIDs converts index chains to id chains, loading any intermediate
// concepts that did not make the ranked list.
func (b *Brain) chainIDs(ctx context.Context, chains [][]int, known map[int]Concept) ([][]string, error) {
	var missing []int
	for _, chain := range chains {
		for _, idx := range chain {
			if _, ok := known[idx]; !ok {
				missing = append(missing, idx)
			}
		}
	}
	if len(missing) > 0 {
		extra, err := conceptsByIndex(ctx, b.store.db, missing)
		if err != nil {
			return nil, err
		}
		for idx, c := range extra {
			known[idx] = c
		}
	}

	paths := make([][]string, 0, len(chains))
	for _, chain := range chains {
		path := make([]string, 0, len(chain))
		for _, idx := range chain {
			c, ok := known[idx]
			if !ok {
				path = nil
				break
			}
			path = append(path, c.ID)
		}
		if path != nil {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

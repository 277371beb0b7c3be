package brain

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// MaxWeight is the ceiling for every edge weight.
	MaxWeight = 2.0
	// DefaultHebbianStrength is the per-call reinforcement increment.
	DefaultHebbianStrength = 0.05
	// DefaultPruneDecay is the fraction of weight lost per prune.
	DefaultPruneDecay = 0.1
	// DefaultPruneMinWeight is the weight below which pruned edges are deleted.
	DefaultPruneMinWeight = 0.15
)

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// LearnReport summarizes a HebbianLearn call.
type LearnReport struct {
	Pairs   int `json:"pairs"`
	Skipped int `json:"skipped"`
}

// HebbianLearn strengthens every ordered pair of distinct concepts in ids by
// strength, creating missing edges. The update is a single transaction.
// strength must be positive.
func (b *Brain) HebbianLearn(ctx context.Context, ids []string, strength float64) (LearnReport, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.hebbian", attribute.Int("ids", len(ids)))
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, b.logger)

	if math.IsNaN(strength) || strength <= 0 {
		err := fmt.Errorf("%w: hebbian strength must be positive, got %v", ErrInvalidParameter, strength)
		tracing.Fail(span, err)
		return LearnReport{}, err
	}

	if err := b.lock(); err != nil {
		return LearnReport{}, err
	}
	defer b.mu.Unlock()

	indices, skipped, err := b.resolveIndices(ctx, ids)
	if err != nil {
		tracing.Fail(span, err)
		return LearnReport{}, err
	}
	report := LearnReport{Skipped: skipped}
	if len(indices) < 2 {
		return report, nil
	}

	now := b.now()
	err = b.store.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO edges (source_idx, target_idx, weight, last_activated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(source_idx, target_idx) DO UPDATE SET
				weight = MAX(MIN(edges.weight + ?, ?), 0.0),
				last_activated_at = excluded.last_activated_at
		`)
		if err != nil {
			return storageErr("prepare reinforce", err)
		}
		defer stmt.Close()

		initial := clampWeight(strength)
		for _, i := range indices {
			for _, j := range indices {
				if i == j {
					continue
				}
				if _, err := stmt.ExecContext(ctx, i, j, initial, now.UnixMilli(), strength, MaxWeight); err != nil {
					return storageErr("reinforce edge", err)
				}
				report.Pairs++
			}
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return LearnReport{}, err
	}

	observability.RecordBrainHebbian(report.Pairs)
	b.refreshGauges(ctx)
	logger.Debug().
		Int("concepts", len(indices)).
		Int("pairs", report.Pairs).
		Int("skipped", skipped).
		Msg("Hebbian update applied")
	return report, nil
}

// Prune multiplies every edge weight by (1 - decay) and deletes edges that
// end up below minWeight. decay must lie in [0, 1] and minWeight must not be
// negative. It returns the number of deleted edges.
func (b *Brain) Prune(ctx context.Context, decay, minWeight float64) (int, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.prune",
		attribute.Float64("decay", decay),
		attribute.Float64("min_weight", minWeight),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, b.logger)
	start := time.Now()

	if err := validatePrune(decay, minWeight); err != nil {
		tracing.Fail(span, err)
		return 0, err
	}

	if err := b.lock(); err != nil {
		return 0, err
	}
	defer b.mu.Unlock()

	var removed int64
	err := b.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE edges SET weight = MAX(MIN(weight * ?, ?), 0.0)", 1-decay, MaxWeight); err != nil {
			return storageErr("decay edges", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE weight < ?", minWeight)
		if err != nil {
			return storageErr("delete weak edges", err)
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return storageErr("count deleted edges", err)
		}
		return nil
	})
	if err != nil {
		tracing.Fail(span, err)
		return 0, err
	}

	observability.RecordBrainPrune(time.Since(start), int(removed))
	b.refreshGauges(ctx)
	logger.Info().
		Int64("removed", removed).
		Dur("duration", time.Since(start)).
		Msg("Prune completed")
	return int(removed), nil
}

func validatePrune(decay, minWeight float64) error {
	if math.IsNaN(decay) || decay < 0 || decay > 1 {
		return fmt.Errorf("%w: prune decay must be between 0 and 1, got %v", ErrInvalidParameter, decay)
	}
	if math.IsNaN(minWeight) || minWeight < 0 {
		return fmt.Errorf("%w: prune min weight must not be negative, got %v", ErrInvalidParameter, minWeight)
	}
	return nil
}

// Connect sets the weight of the directed edge source->target. Unknown ids
// are ignored and reported by a false return.
func (b *Brain) Connect(ctx context.Context, sourceID, targetID string, weight float64) (bool, error) {
	if err := b.lock(); err != nil {
		return false, err
	}
	defer b.mu.Unlock()

	indices, skipped, err := b.resolveIndices(ctx, []string{sourceID, targetID})
	if err != nil {
		return false, err
	}
	if skipped > 0 || len(indices) != 2 {
		b.logger.Debug().Str("source", sourceID).Str("target", targetID).Msg("Connect ignored unknown or identical concepts")
		return false, nil
	}

	if err := setEdge(ctx, b.store.db, indices[0], indices[1], weight, b.now()); err != nil {
		return false, err
	}
	b.refreshGauges(ctx)
	return true, nil
}

// Edge returns the directed edge between two concepts, if present.
func (b *Brain) Edge(ctx context.Context, sourceID, targetID string) (Edge, bool, error) {
	if err := b.lock(); err != nil {
		return Edge{}, false, err
	}
	defer b.mu.Unlock()

	indices, skipped, err := b.resolveIndices(ctx, []string{sourceID, targetID})
	if err != nil || skipped > 0 || len(indices) != 2 {
		return Edge{}, false, err
	}
	return getEdge(ctx, b.store.db, indices[0], indices[1])
}

// Edges returns every edge in the graph ordered by source then target.
func (b *Brain) Edges(ctx context.Context) ([]Edge, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	return loadEdges(ctx, b.store.db)
}

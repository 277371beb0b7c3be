package brain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	lru "github.com/hashicorp/golang-lru/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "recall.brain"

// Config holds Brain configuration
type Config struct {
	DBPath string
	Logger zerolog.Logger
	// CacheSize bounds the id->index cache. Zero selects a default.
	CacheSize int
	// SeedsPerToken is how many title matches each prompt token may contribute.
	SeedsPerToken int
	// Resolver fetches concept content for Recall. Optional.
	Resolver *ContentResolver
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Brain is the single owner of the concept graph. All mutating operations
// are serialized through mu; multi-row writes run in one transaction.
type Brain struct {
	store    *store
	logger   zerolog.Logger
	indices  *lru.Cache[string, int]
	resolver *ContentResolver
	perToken int
	now      func() time.Time

	mu     sync.Mutex
	closed bool
}

// Open opens (or creates) the graph database at cfg.DBPath.
func Open(cfg Config) (*Brain, error) {
	observability.EnsureRegistered()

	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, int](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}

	s, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	b := &Brain{
		store:    s,
		logger:   cfg.Logger,
		indices:  cache,
		resolver: cfg.Resolver,
		perToken: cfg.SeedsPerToken,
		now:      cfg.Now,
	}
	if b.perToken <= 0 {
		b.perToken = DefaultSeedsPerToken
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.resolver == nil {
		b.resolver = NewContentResolver()
	}

	b.refreshGauges(context.Background())
	b.logger.Info().Str("db", cfg.DBPath).Msg("Brain opened")
	return b, nil
}

// Close releases the database.
func (b *Brain) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Info().Msg("Closing brain")
	return b.store.close()
}

// Resolver returns the content resolver used by Recall.
func (b *Brain) Resolver() *ContentResolver {
	return b.resolver
}

// lock acquires mu and fails if the Brain has been closed.
func (b *Brain) lock() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	return nil
}

// AddConcept inserts a concept, or returns the existing one unchanged when
// id is already known. An empty id is replaced by "<kind>_<nanoid>".
func (b *Brain) AddConcept(ctx context.Context, id, title string, kind Kind, domain string) (Concept, error) {
	if err := validateConcept(title, kind); err != nil {
		return Concept{}, err
	}
	if id == "" {
		suffix, err := gonanoid.New(12)
		if err != nil {
			return Concept{}, fmt.Errorf("failed to generate concept id: %w", err)
		}
		id = string(kind) + "_" + suffix
	}

	if err := b.lock(); err != nil {
		return Concept{}, err
	}
	defer b.mu.Unlock()

	var (
		c       Concept
		created bool
	)
	err := b.store.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, created, err = insertConcept(ctx, tx, id, title, kind, domain, b.now())
		return err
	})
	if err != nil {
		return Concept{}, err
	}
	b.indices.Add(c.ID, c.Index)
	if created {
		b.logger.Debug().Str("id", c.ID).Int("index", c.Index).Msg("Concept added")
		b.refreshGauges(ctx)
	}
	return c, nil
}

// Get returns the concept with the given id, or ErrNotFound.
func (b *Brain) Get(ctx context.Context, id string) (Concept, error) {
	if err := b.lock(); err != nil {
		return Concept{}, err
	}
	defer b.mu.Unlock()

	return getConcept(ctx, b.store.db, id)
}

// Search returns concepts whose title contains word (case-insensitive),
// most activated first, ties in insertion order.
func (b *Brain) Search(ctx context.Context, word string, limit int) ([]Concept, error) {
	if err := b.lock(); err != nil {
		return nil, err
	}
	defer b.mu.Unlock()

	return b.search(ctx, word, limit)
}

func (b *Brain) search(ctx context.Context, word string, limit int) ([]Concept, error) {
	word = strings.TrimSpace(word)
	if word == "" || limit <= 0 {
		return nil, nil
	}
	return searchConcepts(ctx, b.store.db, word, limit)
}

// Sync bulk-loads entries from an external content store. Entries whose id
// already exists are left untouched. The whole batch is one transaction.
func (b *Brain) Sync(ctx context.Context, entries []Entry) (SyncReport, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "brain.sync", attribute.Int("entries", len(entries)))
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, b.logger)
	start := time.Now()

	for i, e := range entries {
		if e.ID == "" {
			return SyncReport{}, fmt.Errorf("%w: entry %d has no id", ErrInvalidConcept, i)
		}
		if err := validateConcept(e.Title, e.Kind); err != nil {
			return SyncReport{}, fmt.Errorf("entry %s: %w", e.ID, err)
		}
	}

	if err := b.lock(); err != nil {
		return SyncReport{}, err
	}
	defer b.mu.Unlock()

	var report SyncReport
	now := b.now()
	err := b.store.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			c, created, err := insertConcept(ctx, tx, e.ID, e.Title, e.Kind, e.Domain, now)
			if err != nil {
				return err
			}
			if created {
				report.Added++
			} else {
				report.Existing++
			}
			b.indices.Add(c.ID, c.Index)
		}
		return nil
	})
	if err != nil {
		// Indices cached above may belong to rolled back rows.
		b.indices.Purge()
		tracing.Fail(span, err)
		return SyncReport{}, err
	}

	observability.RecordBrainSync(time.Since(start), report.Added)
	b.refreshGauges(ctx)
	logger.Info().
		Int("added", report.Added).
		Int("existing", report.Existing).
		Dur("duration", time.Since(start)).
		Msg("Sync completed")
	return report, nil
}

// Stats reports the size of the graph.
func (b *Brain) Stats(ctx context.Context) (Stats, error) {
	if err := b.lock(); err != nil {
		return Stats{}, err
	}
	defer b.mu.Unlock()

	return b.stats(ctx)
}

func (b *Brain) stats(ctx context.Context) (Stats, error) {
	var (
		st   Stats
		mean sql.NullFloat64
	)
	db := b.store.db
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM concepts").Scan(&st.Concepts); err != nil {
		return Stats{}, storageErr("count concepts", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*), AVG(weight) FROM edges").Scan(&st.Edges, &mean); err != nil {
		return Stats{}, storageErr("count edges", err)
	}
	st.MeanWeight = mean.Float64

	var err error
	if st.Capacity, err = getMetaInt(ctx, db, metaCapacity); err != nil {
		return Stats{}, err
	}
	if st.NextIndex, err = getMetaInt(ctx, db, metaNextIndex); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// refreshGauges publishes concept and edge totals. Callers hold mu or are
// still constructing the Brain.
func (b *Brain) refreshGauges(ctx context.Context) {
	st, err := b.stats(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to refresh graph gauges")
		return
	}
	observability.SetBrainSize(st.Concepts, st.Edges)
}

// resolveIndices maps ids to indices, dropping unknown and duplicate ids
// while keeping first-seen order. The second value counts unknown ids.
func (b *Brain) resolveIndices(ctx context.Context, ids []string) ([]int, int, error) {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	skipped := 0
	for _, id := range ids {
		idx, ok := b.indices.Get(id)
		if !ok {
			c, err := getConcept(ctx, b.store.db, id)
			if errors.Is(err, ErrNotFound) {
				skipped++
				continue
			}
			if err != nil {
				return nil, 0, err
			}
			idx = c.Index
			b.indices.Add(id, idx)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out, skipped, nil
}

func validateConcept(title string, kind Kind) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidConcept)
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidConcept, kind)
	}
	return nil
}

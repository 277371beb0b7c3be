package brain

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrownCapacity(t *testing.T) {
	tests := []struct {
		current, next, want int
	}{
		{0, 0, 100},
		{100, 0, 100},
		{100, 99, 100},
		{100, 100, 200},
		{200, 450, 800},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.current, tt.next), func(t *testing.T) {
			assert.Equal(t, tt.want, grownCapacity(tt.current, tt.next))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := storageErr("insert concept", cause)

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "insert concept: disk I/O error")
	assert.NoError(t, storageErr("noop", nil))
}

func TestAddConcept(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns monotonic indices", func(t *testing.T) {
		b := openTestBrain(t)
		for i, id := range []string{"a", "b", "c"} {
			c, err := b.AddConcept(ctx, id, "title "+id, KindWisdom, "go")
			require.NoError(t, err)
			assert.Equal(t, i, c.Index)
			assert.Equal(t, "go", c.Domain)
		}

		st, err := b.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, st.Concepts)
		assert.Equal(t, 3, st.NextIndex)
		assert.Equal(t, MinCapacity, st.Capacity)
	})

	t.Run("idempotent on id", func(t *testing.T) {
		b := openTestBrain(t)
		first, err := b.AddConcept(ctx, "a", "original", KindBelief, "")
		require.NoError(t, err)
		second, err := b.AddConcept(ctx, "a", "changed", KindTerm, "")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		got, err := b.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "original", got.Title)
		assert.Equal(t, KindBelief, got.Kind)

		st, err := b.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.NextIndex)
	})

	t.Run("generates id", func(t *testing.T) {
		b := openTestBrain(t)
		c, err := b.AddConcept(ctx, "", "Keep functions small", KindPattern, "")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(c.ID, "pattern_"))
		assert.Len(t, c.ID, len("pattern_")+12)
	})

	t.Run("validation", func(t *testing.T) {
		b := openTestBrain(t)
		_, err := b.AddConcept(ctx, "a", "  ", KindTerm, "")
		assert.ErrorIs(t, err, ErrInvalidConcept)
		_, err = b.AddConcept(ctx, "a", "title", Kind("opinion"), "")
		assert.ErrorIs(t, err, ErrInvalidConcept)
	})
}

func TestGetUnknown(t *testing.T) {
	b := openTestBrain(t)
	_, err := b.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCapacityGrowthPreservesEdges(t *testing.T) {
	ctx := context.Background()
	b := openTestBrain(t)

	entries := make([]Entry, MinCapacity)
	for i := range entries {
		entries[i] = Entry{ID: fmt.Sprintf("c%03d", i), Title: fmt.Sprintf("concept %d", i), Kind: KindTerm}
	}
	_, err := b.Sync(ctx, entries)
	require.NoError(t, err)

	connect(t, b, "c000", "c001", 0.7)
	connect(t, b, "c050", "c099", 1.3)
	connect(t, b, "c099", "c000", 2.0)

	st, err := b.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, MinCapacity, st.Capacity)

	c, err := b.AddConcept(ctx, "c100", "concept 100", KindTerm, "")
	require.NoError(t, err)
	assert.Equal(t, 100, c.Index)

	st, err = b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*MinCapacity, st.Capacity)
	assert.Equal(t, 101, st.NextIndex)
	assert.Equal(t, 3, st.Edges)

	w, ok := weight(t, b, "c000", "c001")
	require.True(t, ok)
	assert.Equal(t, 0.7, w)
	w, ok = weight(t, b, "c050", "c099")
	require.True(t, ok)
	assert.Equal(t, 1.3, w)
	w, ok = weight(t, b, "c099", "c000")
	require.True(t, ok)
	assert.Equal(t, 2.0, w)

	connect(t, b, "c100", "c000", 0.4)
	res, err := b.Spread(ctx, []string{"c100"}, SpreadOptions{Depth: 1, Decay: 0.5, Threshold: 0.01, Limit: 10})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, scores(res)["c000"], 1e-9)
}

func TestReopenPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "brain.db")

	b, err := Open(Config{DBPath: path})
	require.NoError(t, err)
	addTerms(t, b, "a", "b")
	connect(t, b, "a", "b", 0.9)
	require.NoError(t, b.Close())

	b = openTestBrainAt(t, path)
	st, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Concepts: 2, Edges: 1, Capacity: MinCapacity, NextIndex: 2, MeanWeight: 0.9}, st)

	c, err := b.AddConcept(ctx, "c", "third", KindTerm, "")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Index)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	b := openTestBrain(t)

	_, err := b.Sync(ctx, []Entry{
		{ID: "a", Title: "Alpha migration plan", Kind: KindDecision},
		{ID: "b", Title: "Beta MIGRATION notes", Kind: KindTerm},
		{ID: "c", Title: "Gamma", Kind: KindTerm},
	})
	require.NoError(t, err)

	got, err := b.Search(ctx, "migration", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	_, err = b.Spread(ctx, []string{"b"}, SpreadOptions{Depth: 0, Decay: 0.5, Limit: 10})
	require.NoError(t, err)

	got, err = b.Search(ctx, "Migration", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, 1, got[0].ActivationCount)

	got, err = b.Search(ctx, "migration", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = b.AddConcept(ctx, "u", "ÜBERSICHT der Architektur", KindDecision, "")
	require.NoError(t, err)
	got, err = b.Search(ctx, "übersicht", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u", got[0].ID)
	got, err = b.Search(ctx, "ARCHITEKTUR", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = b.Search(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	b := openTestBrain(t)

	report, err := b.Sync(ctx, []Entry{
		{ID: "a", Title: "A", Kind: KindWisdom},
		{ID: "b", Title: "B", Kind: KindFile, Domain: "repo"},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Added: 2}, report)

	report, err = b.Sync(ctx, []Entry{
		{ID: "b", Title: "B again", Kind: KindFile},
		{ID: "c", Title: "C", Kind: KindFailure},
	})
	require.NoError(t, err)
	assert.Equal(t, SyncReport{Added: 1, Existing: 1}, report)

	c, err := b.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Index)
}

func TestSyncRejectsInvalidBatch(t *testing.T) {
	ctx := context.Background()
	b := openTestBrain(t)

	_, err := b.Sync(ctx, []Entry{
		{ID: "a", Title: "A", Kind: KindWisdom},
		{ID: "b", Title: "B", Kind: Kind("rumor")},
	})
	assert.ErrorIs(t, err, ErrInvalidConcept)

	_, err = b.Sync(ctx, []Entry{{Title: "no id", Kind: KindTerm}})
	assert.ErrorIs(t, err, ErrInvalidConcept)

	st, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Concepts)
}

func TestClosedBrain(t *testing.T) {
	ctx := context.Background()
	b, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "brain.db")})
	require.NoError(t, err)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, err = b.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = b.Spread(ctx, []string{"a"}, DefaultSpreadOptions())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = b.HebbianLearn(ctx, []string{"a", "b"}, 0.1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

package brain

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func openTestBrain(t *testing.T) *Brain {
	t.Helper()
	return openTestBrainAt(t, filepath.Join(t.TempDir(), "brain.db"))
}

func openTestBrainAt(t *testing.T, path string) *Brain {
	t.Helper()
	b, err := Open(Config{
		DBPath: path,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// addTerms adds one term concept per id, titled after the id.
func addTerms(t *testing.T, b *Brain, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := b.AddConcept(context.Background(), id, "concept "+id, KindTerm, "")
		require.NoError(t, err)
	}
}

func connect(t *testing.T, b *Brain, src, tgt string, w float64) {
	t.Helper()
	ok, err := b.Connect(context.Background(), src, tgt, w)
	require.NoError(t, err)
	require.True(t, ok, "connect %s -> %s", src, tgt)
}

func weight(t *testing.T, b *Brain, src, tgt string) (float64, bool) {
	t.Helper()
	e, ok, err := b.Edge(context.Background(), src, tgt)
	require.NoError(t, err)
	return e.Weight, ok
}

func scores(res *ActivationResult) map[string]float64 {
	out := make(map[string]float64, len(res.Activated))
	for _, sc := range res.Activated {
		out[sc.Concept.ID] = sc.Score
	}
	return out
}

package syncfile

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harun/recall/pkg/brain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const jsonEntries = `{
  "version": 1,
  "concepts": [
    {"id": "wisdom_1", "title": "Prefer small interfaces", "kind": "wisdom", "domain": "go", "content": "Accept interfaces, return structs."},
    {"id": "term_1", "title": "Hebbian learning", "kind": "term"}
  ]
}`

const yamlEntries = `
version: 1
concepts:
  - id: decision_1
    title: Store graph in SQLite
    kind: decision
    content: WAL mode, one writer.
  - id: failure_1
    title: Capacity growth lost edges
    kind: failure
    domain: storage
`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func openBrain(t *testing.T) *brain.Brain {
	t.Helper()
	b, err := brain.Open(brain.Config{
		DBPath: filepath.Join(t.TempDir(), "brain.db"),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"entries.json", FormatJSON, false},
		{"entries.YAML", FormatYAML, false},
		{"entries.yml", FormatYAML, false},
		{"entries.toml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader(t *testing.T) {
	l := NewLoader(zerolog.Nop())
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		doc, err := l.Load(writeFile(t, dir, "a.json", jsonEntries))
		require.NoError(t, err)
		require.Len(t, doc.Concepts, 2)
		assert.Equal(t, "wisdom_1", doc.Concepts[0].ID)
		assert.Equal(t, "Accept interfaces, return structs.", doc.Concepts[0].Content)

		entries := doc.Entries()
		assert.Equal(t, brain.Entry{ID: "term_1", Title: "Hebbian learning", Kind: brain.KindTerm}, entries[1])
	})

	t.Run("yaml", func(t *testing.T) {
		doc, err := l.Load(writeFile(t, dir, "a.yaml", yamlEntries))
		require.NoError(t, err)
		require.Len(t, doc.Concepts, 2)
		assert.Equal(t, "storage", doc.Concepts[1].Domain)
		assert.Equal(t, brain.KindDecision, doc.Entries()[0].Kind)
	})

	t.Run("schema violations", func(t *testing.T) {
		bad := []string{
			`{"concepts": [{"id": "x", "title": "t", "kind": "opinion"}]}`,
			`{"concepts": [{"id": "x", "kind": "term"}]}`,
			`{"concepts": [{"id": "", "title": "t", "kind": "term"}]}`,
			`{"concepts": [{"id": "x", "title": "t", "kind": "term", "weight": 2}]}`,
			`{"items": []}`,
		}
		for _, data := range bad {
			_, err := l.Parse([]byte(data), FormatJSON)
			assert.Error(t, err, data)
		}
	})

	t.Run("duplicate ids", func(t *testing.T) {
		data := `{"concepts": [{"id": "x", "title": "a", "kind": "term"}, {"id": "x", "title": "b", "kind": "term"}]}`
		_, err := l.Parse([]byte(data), FormatJSON)
		assert.ErrorContains(t, err, "duplicate concept id")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := l.Parse([]byte(`{`), FormatJSON)
		assert.Error(t, err)
		_, err = l.Parse([]byte("concepts: [\n"), FormatYAML)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := l.Load(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
	})
}

func TestSource(t *testing.T) {
	s := NewSource()
	ctx := context.Background()

	_, err := s.FetchContent(ctx, brain.Concept{ID: "a"})
	assert.ErrorIs(t, err, brain.ErrNotFound)

	s.Replace(&Document{Concepts: []Record{
		{ID: "a", Content: "alpha"},
		{ID: "b"},
	}})
	assert.Equal(t, 1, s.Len())

	body, err := s.FetchContent(ctx, brain.Concept{ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "alpha", body)

	s.Replace(&Document{})
	_, err = s.FetchContent(ctx, brain.Concept{ID: "a"})
	assert.ErrorIs(t, err, brain.ErrNotFound)
}

func TestSyncerSyncFile(t *testing.T) {
	ctx := context.Background()
	b := openBrain(t)
	s := NewSyncer(b, zerolog.Nop())
	path := writeFile(t, t.TempDir(), "entries.json", jsonEntries)

	report, err := s.SyncFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, brain.SyncReport{Added: 2}, report)

	report, err = s.SyncFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, brain.SyncReport{Existing: 2}, report)

	c, err := b.Get(ctx, "wisdom_1")
	require.NoError(t, err)
	body, err := b.Resolver().Fetch(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "Accept interfaces, return structs.", body)
}

func TestSyncerLoadContent(t *testing.T) {
	ctx := context.Background()
	b := openBrain(t)
	s := NewSyncer(b, zerolog.Nop())

	require.NoError(t, s.LoadContent(writeFile(t, t.TempDir(), "entries.yaml", yamlEntries)))
	assert.Equal(t, 1, s.Source().Len())

	st, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Concepts)
}

func TestSyncerKeepsContentOnFailure(t *testing.T) {
	ctx := context.Background()
	b := openBrain(t)
	s := NewSyncer(b, zerolog.Nop())
	dir := t.TempDir()

	_, err := s.SyncFile(ctx, writeFile(t, dir, "entries.json", jsonEntries))
	require.NoError(t, err)

	_, err = s.SyncFile(ctx, writeFile(t, dir, "broken.json", `{"concepts": 1}`))
	require.Error(t, err)
	assert.Equal(t, 1, s.Source().Len())
}

func TestWatcherDebouncesChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := writeFile(t, dir, "entries.json", jsonEntries)
	writeFile(t, dir, "other.json", "{}")

	var calls atomic.Int32
	w, err := NewWatcher(zerolog.Nop(), path, 50*time.Millisecond, func() {
		calls.Add(1)
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(jsonEntries), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestSyncerWatchResyncs(t *testing.T) {
	ctx := context.Background()
	b := openBrain(t)
	s := NewSyncer(b, zerolog.Nop())
	path := writeFile(t, t.TempDir(), "entries.yaml", yamlEntries)

	_, err := s.SyncFile(ctx, path)
	require.NoError(t, err)

	w, err := s.Watch(ctx, path, 20*time.Millisecond)
	require.NoError(t, err)
	defer w.Stop()

	updated := yamlEntries + "  - id: pattern_1\n    title: Retry with backoff\n    kind: pattern\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		_, err := b.Get(ctx, "pattern_1")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
}

package syncfile

import (
	"context"
	"time"

	"github.com/harun/recall/pkg/brain"
	"github.com/rs/zerolog"
)

// Syncer loads an entries file into a Brain and keeps its content available
// for recall.
type Syncer struct {
	brain  *brain.Brain
	loader *Loader
	source *Source
	logger zerolog.Logger
}

// NewSyncer creates a syncer and registers its Source as the content fetcher
// for every concept kind on b.
func NewSyncer(b *brain.Brain, logger zerolog.Logger) *Syncer {
	s := &Syncer{
		brain:  b,
		loader: NewLoader(logger),
		source: NewSource(),
		logger: logger.With().Str("component", "syncer").Logger(),
	}
	b.Resolver().RegisterAll(s.source)
	return s
}

// Source returns the content source fed by this syncer.
func (s *Syncer) Source() *Source {
	return s.source
}

// SyncFile loads path and syncs its concepts. Content is replaced only after
// the graph write succeeds.
func (s *Syncer) SyncFile(ctx context.Context, path string) (brain.SyncReport, error) {
	doc, err := s.loader.Load(path)
	if err != nil {
		return brain.SyncReport{}, err
	}

	report, err := s.brain.Sync(ctx, doc.Entries())
	if err != nil {
		return brain.SyncReport{}, err
	}
	s.source.Replace(doc)
	return report, nil
}

// LoadContent loads path into the content source without touching the graph.
func (s *Syncer) LoadContent(path string) error {
	doc, err := s.loader.Load(path)
	if err != nil {
		return err
	}
	s.source.Replace(doc)
	return nil
}

// Watch resyncs path whenever it changes until the returned watcher is
// stopped. Failed resyncs are logged and the previous state is kept.
func (s *Syncer) Watch(ctx context.Context, path string, debounce time.Duration) (*Watcher, error) {
	return NewWatcher(s.logger, path, debounce, func() {
		report, err := s.SyncFile(ctx, path)
		if err != nil {
			s.logger.Error().Err(err).Str("file", path).Msg("Resync failed")
			return
		}
		s.logger.Info().
			Int("added", report.Added).
			Int("existing", report.Existing).
			Msg("Resynced entries file")
	})
}

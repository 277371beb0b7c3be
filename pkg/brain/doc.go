// Package brain is an associative memory graph: concepts linked by weighted
// directed edges, queried by spreading activation and trained by Hebbian
// reinforcement.
//
// Invariants:
// - Concept ids are unique; indices are dense, monotonic and never reused.
// - Edge weights stay within [0, MaxWeight]; edges below the prune floor are deleted.
// - All mutations go through a single Brain, which serializes them.
//
// Usage:
//
//	b, _ := brain.Open(brain.Config{DBPath: "/data/brain.db"})
//	defer b.Close()
//	_, _ = b.Sync(ctx, entries)
//	_, _ = b.AutoLink(ctx)
//	seeds, _ := b.FindSeeds(ctx, "how do we handle migrations", 10)
//	res, _ := b.Spread(ctx, seeds, brain.DefaultSpreadOptions())
//	_, _ = b.HebbianLearn(ctx, res.IDs(), brain.DefaultHebbianStrength)
package brain

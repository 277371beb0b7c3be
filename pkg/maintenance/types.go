package maintenance

import (
	"context"
	"time"
)

// Job names a maintenance job.
type Job string

const (
	JobPrune    Job = "prune"
	JobAutoLink Job = "autolink"
)

// Actor values recorded in the audit log.
const (
	ActorScheduler = "scheduler"
	ActorCLI       = "cli"
)

// Maintainer is the subset of the graph the scheduler drives.
type Maintainer interface {
	Prune(ctx context.Context, decay, minWeight float64) (int, error)
	AutoLink(ctx context.Context) (int, error)
}

// Result describes one job run.
type Result struct {
	Job      Job           `json:"job"`
	Actor    string        `json:"actor"`
	Affected int           `json:"affected"` // edges removed or pairs linked
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

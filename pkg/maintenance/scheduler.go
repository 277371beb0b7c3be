package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const tracerName = "recall.maintenance"

// Parser accepts standard five-field expressions and descriptors such as
// "@daily" or "@every 6h".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Options configures a Scheduler.
type Options struct {
	Graph Maintainer
	// An empty schedule disables that job. At least one must be set.
	PruneSchedule    string
	AutoLinkSchedule string
	PruneDecay       float64
	PruneMinWeight   float64
	Audit            *observability.AuditLogger
	Logger           zerolog.Logger
	// OnResult is called after every run. Optional.
	OnResult func(Result)
}

// Scheduler runs prune and auto-link on cron schedules. A job never overlaps
// with itself; a tick that fires while the previous run is still going is
// skipped.
type Scheduler struct {
	cron    *cron.Cron
	opts    Options
	logger  zerolog.Logger
	entries map[Job]cron.EntryID

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New validates the schedules and builds a stopped scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.Graph == nil {
		return nil, errors.New("graph is required")
	}
	if opts.PruneSchedule == "" && opts.AutoLinkSchedule == "" {
		return nil, errors.New("no maintenance schedule configured")
	}

	logger := opts.Logger.With().Str("component", "maintenance").Logger()
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithParser(Parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    c,
		opts:    opts,
		logger:  logger,
		entries: make(map[Job]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}

	schedules := []struct {
		job  Job
		expr string
	}{
		{JobPrune, opts.PruneSchedule},
		{JobAutoLink, opts.AutoLinkSchedule},
	}
	for _, sc := range schedules {
		if sc.expr == "" {
			continue
		}
		if err := s.add(sc.job, sc.expr); err != nil {
			cancel()
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(job Job, expr string) error {
	id, err := s.cron.AddFunc(expr, func() {
		s.Run(s.ctx, job, ActorScheduler)
	})
	if err != nil {
		return fmt.Errorf("invalid %s schedule %q: %w", job, expr, err)
	}
	s.entries[job] = id
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.cron.Start()

	for job, next := range s.NextRuns() {
		s.logger.Info().Str("job", string(job)).Time("next_run", next).Msg("Maintenance job scheduled")
	}
}

// Stop stops scheduling and waits for running jobs to finish or for ctx to
// be done, whichever comes first. Running jobs see a cancelled context once
// ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.cancel()
		s.logger.Info().Msg("Maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// NextRuns reports when each scheduled job fires next. Before Start the
// times are computed from now.
func (s *Scheduler) NextRuns() map[Job]time.Time {
	out := make(map[Job]time.Time, len(s.entries))
	now := time.Now()
	for job, id := range s.entries {
		e := s.cron.Entry(id)
		if !e.Next.IsZero() {
			out[job] = e.Next
		} else if e.Schedule != nil {
			out[job] = e.Schedule.Next(now)
		}
	}
	return out
}

// Run executes job once, records it and returns its result. It is used by the
// schedule and by the CLI for on-demand runs.
func (s *Scheduler) Run(ctx context.Context, job Job, actor string) Result {
	return runJob(ctx, s.opts, s.logger, job, actor)
}

// RunOnce executes a single job without a schedule.
func RunOnce(ctx context.Context, opts Options, job Job, actor string) Result {
	logger := opts.Logger.With().Str("component", "maintenance").Logger()
	return runJob(ctx, opts, logger, job, actor)
}

func runJob(ctx context.Context, opts Options, logger zerolog.Logger, job Job, actor string) Result {
	ctx = tracing.NewRunContext(ctx, actor+"/"+string(job))
	ctx, span := tracing.StartSpan(ctx, tracerName, "maintenance."+string(job),
		attribute.String("maintenance.actor", actor))
	defer span.End()
	logger = tracing.LoggerFromContext(ctx, logger)

	res := Result{Job: job, Actor: actor}
	start := time.Now()
	switch job {
	case JobPrune:
		res.Affected, res.Err = opts.Graph.Prune(ctx, opts.PruneDecay, opts.PruneMinWeight)
	case JobAutoLink:
		res.Affected, res.Err = opts.Graph.AutoLink(ctx)
	default:
		res.Err = fmt.Errorf("unknown maintenance job %q", job)
	}
	res.Duration = time.Since(start)

	observability.RecordMaintenanceRun(string(job), res.Duration, res.Err == nil)
	opts.Audit.RecordMaintenance(ctx, string(job), actor, res.Err, map[string]interface{}{
		"affected":    res.Affected,
		"duration_ms": res.Duration.Milliseconds(),
	})

	if res.Err != nil {
		tracing.Fail(span, res.Err)
		logger.Error().Err(res.Err).Str("job", string(job)).Str("actor", actor).Msg("Maintenance job failed")
	} else {
		logger.Info().
			Str("job", string(job)).
			Str("actor", actor).
			Int("affected", res.Affected).
			Dur("duration", res.Duration).
			Msg("Maintenance job completed")
	}

	if opts.OnResult != nil {
		opts.OnResult(res)
	}
	return res
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

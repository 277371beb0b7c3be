package cli

import (
	"fmt"
	"os"

	"github.com/harun/recall/internal/config"
	"github.com/harun/recall/internal/logger"
	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	"github.com/harun/recall/pkg/brain"
	"github.com/harun/recall/pkg/maintenance"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app bundles the configuration, logger and graph a command works with.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	logger zerolog.Logger
	brain  *brain.Brain
}

// openApp loads configuration, builds the logger and opens the graph.
func openApp(cmd *cobra.Command) (*app, error) {
	cmd.SetContext(tracing.NewRunContext(cmd.Context(), "cli/"+cmd.Name()))

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	l, err := logger.New(logger.Config{
		Level:          cfg.Logging.Level,
		File:           cfg.Logging.File,
		Console:        cfg.Logging.Console,
		Pretty:         cfg.Logging.Pretty,
		Redaction:      cfg.Logging.Redaction,
		RedactPatterns: cfg.Logging.RedactPatterns,
		Rotation: logger.RotationPolicy{
			MaxSizeMB:  cfg.Logging.MaxSize,
			MaxAgeDays: cfg.Logging.MaxAge,
			Compress:   cfg.Logging.Compress,
		},
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	b, err := brain.Open(brain.Config{
		DBPath:        cfg.Brain.DBPath,
		Logger:        l.Component("brain"),
		CacheSize:     cfg.Brain.CacheSize,
		SeedsPerToken: cfg.Brain.SeedsPerToken,
	})
	if err != nil {
		l.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    l,
		logger: l.Zerolog(),
		brain:  b,
	}, nil
}

// Close closes the graph and the log file.
func (a *app) Close() {
	if err := a.brain.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close brain")
	}
	a.log.Close()
}

// openAudit opens the maintenance audit log. Failure degrades to no audit.
func (a *app) openAudit() *observability.AuditLogger {
	if a.cfg.Maintenance.AuditFile == "" {
		return nil
	}
	audit, err := observability.OpenAuditLogger(a.cfg.Maintenance.AuditFile)
	if err != nil {
		a.logger.Warn().Err(err).Str("file", a.cfg.Maintenance.AuditFile).Msg("Audit log unavailable")
		return nil
	}
	return audit
}

// maintenanceOptions builds scheduler options from the configuration.
func (a *app) maintenanceOptions(audit *observability.AuditLogger) maintenance.Options {
	return maintenance.Options{
		Graph:            a.brain,
		PruneSchedule:    a.cfg.Maintenance.PruneSchedule,
		AutoLinkSchedule: a.cfg.Maintenance.AutoLinkSchedule,
		PruneDecay:       a.cfg.Brain.Prune.Decay,
		PruneMinWeight:   a.cfg.Brain.Prune.MinWeight,
		Audit:            audit,
		Logger:           a.log.Component("maintenance"),
	}
}

// spreadOptions returns the configured spread defaults.
func (a *app) spreadOptions() brain.SpreadOptions {
	s := a.cfg.Brain.Spread
	return brain.SpreadOptions{
		Depth:     s.Depth,
		Decay:     s.Decay,
		Threshold: s.Threshold,
		Limit:     s.Limit,
	}
}

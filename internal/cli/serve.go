package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/harun/recall/internal/observability"
	"github.com/harun/recall/internal/tracing"
	"github.com/harun/recall/pkg/maintenance"
	"github.com/harun/recall/pkg/syncfile"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run background maintenance",
	Long: `Run in the foreground until interrupted: prune and auto-link on the
configured cron schedules, keep the graph in sync with sync.file when
sync.watch is set, and expose Prometheus metrics when metrics.enabled is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(tracing.Options{
		ServiceName:    "recall",
		ServiceVersion: version,
		SampleRatio:    1,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Tracing disabled")
	} else {
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	if path := a.cfg.Sync.File; path != "" {
		syncer := syncfile.NewSyncer(a.brain, a.log.Component("sync"))
		if _, err := syncer.SyncFile(ctx, path); err != nil {
			a.logger.Error().Err(err).Str("file", path).Msg("Initial sync failed")
		}
		if a.cfg.Sync.Watch {
			w, err := syncer.Watch(ctx, path, syncfile.DefaultDebounce)
			if err != nil {
				return err
			}
			defer w.Stop()
		}
	}

	audit := a.openAudit()
	defer audit.Close()

	opts := a.maintenanceOptions(audit)
	if opts.PruneSchedule != "" || opts.AutoLinkSchedule != "" {
		sched, err := maintenance.New(opts)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sched.Stop(sctx); err != nil {
				a.logger.Warn().Err(err).Msg("Maintenance did not stop cleanly")
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.MetricsHandler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		addr := net.JoinHostPort(a.cfg.Metrics.Host, strconv.Itoa(a.cfg.Metrics.Port))
		server := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			a.logger.Info().Str("addr", addr).Msg("Serving metrics")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	a.logger.Info().Msg("Recall serving; press Ctrl+C to stop")
	err = g.Wait()
	a.logger.Info().Msg("Shutting down")
	return err
}

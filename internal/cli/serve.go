package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/halyardlabs/snapview/internal/api"
	"github.com/halyardlabs/snapview/internal/session"
	"github.com/halyardlabs/snapview/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion/query API and the snapshot worker",
		Long: `Run the HTTP API together with the session tracker and the
snapshot computation worker. Shuts down cleanly on SIGINT/SIGTERM.

Example:
  snapview serve --config snapview.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions) error {
	s, cfg, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	logger := slog.Default()

	worker := session.NewWorker(s, logger, session.WithRetention(cfg.SnapshotRetention))
	tracker := session.NewTracker(worker, cfg.InactivityTimeout, logger)
	reader := state.New(s)
	server := api.New(s, tracker, reader, cfg.PageSize, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx)
	}()

	httpDone := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Listen)
		httpDone <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-httpDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitCommandError, "http server", err)
		}
	}

	// Graceful shutdown: stop accepting requests, cancel pending session
	// deadlines, let the worker drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	tracker.Shutdown()
	<-workerDone

	logger.Info("shutdown complete")
	return nil
}

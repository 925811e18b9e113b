package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/glorpus-work/modelfetch/internal/logger"
	"github.com/glorpus-work/modelfetch/internal/server"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the model acquisition API server",
		Long: `Run the HTTP API server. Download requests below the sync threshold are
served inline; larger ones are queued for the background worker.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), listenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, listenAddr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr == "" {
		listenAddr = cfg.Settings.ListenAddr
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go comps.Worker.Run(workerCtx)

	srv := &server.Server{
		Orch:     comps.Orch,
		Registry: comps.Registry,
		Jobs:     comps.Jobs,
	}
	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API server listening", logger.Fields{"addr": listenAddr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ent0n29/responder/internal/app"
	"github.com/ent0n29/responder/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kiosk API and start sessions on request",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	built, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           built.API.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	built.Sessions.StartJanitor(ctx, 5*time.Second)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}
	// A patient mid-session still gets a record filed before exit.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), shutdownWait(cfg))
	defer waitCancel()
	if err := built.Kiosk.Wait(waitCtx); err != nil {
		log.Warn().Err(err).Msg("session did not finish before shutdown")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

// shutdownWait bounds how long serve waits for an interrupted session. It
// covers a full finalize so summarizing and filing are not cut short.
func shutdownWait(cfg config.Config) time.Duration {
	return max(cfg.ShutdownTimeout, cfg.FinalizeTimeout+5*time.Second)
}

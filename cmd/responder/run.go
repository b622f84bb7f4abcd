package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ent0n29/responder/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one patient session in the foreground",
	Long:  `run identifies the patient, converses until a termination condition and files the record. It exits non-zero when the session ended with an error.`,
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
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

	s, err := built.Kiosk.RunForeground(ctx)
	log.Info().
		Str("session_id", s.ID).
		Str("subject", s.Subject).
		Str("termination", string(s.Termination)).
		Str("record_id", s.RecordID).
		Int("remaining", s.Remaining).
		Msg("session finished")
	if err != nil {
		return fmt.Errorf("session %s: %w", s.ID, err)
	}
	return nil
}

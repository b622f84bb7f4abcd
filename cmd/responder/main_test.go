package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ent0n29/responder/internal/config"
)

func TestOneLineFlattensAndTruncates(t *testing.T) {
	require.Equal(t, "chest pain since morning", oneLine("chest pain\nsince morning", 80))
	require.Equal(t, "abcd…", oneLine("abcdefgh", 5))
}

func TestSetupLoggingFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	setupLogging("debug", "json")
	require.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogging("loud", "console")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestCommandsAreRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	require.Contains(t, names, "serve")
	require.Contains(t, names, "run")
	require.Contains(t, names, "records")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"records", "--help"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "list")
}

func TestShutdownWaitCoversFinalize(t *testing.T) {
	cfg := config.Config{ShutdownTimeout: 15 * time.Second, FinalizeTimeout: 30 * time.Second}
	require.Equal(t, 35*time.Second, shutdownWait(cfg))

	cfg = config.Config{ShutdownTimeout: time.Minute, FinalizeTimeout: 10 * time.Second}
	require.Equal(t, time.Minute, shutdownWait(cfg))
}

package memory

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// NewStore creates a postgres-backed audit store when a database is configured,
// otherwise an in-memory one.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		log.Info().Str("backend", "memory").Msg("audit transcript store")
		return NewInMemoryStore(), nil
	}
	log.Info().Str("backend", "postgres").Msg("audit transcript store")
	return NewPostgresStore(ctx, databaseURL)
}

package records

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Options selects and configures a record backend.
type Options struct {
	Backend       string // auto, postgres, supabase, sqlite, memory
	DatabaseURL   string
	Table         string
	NotifyChannel string
	SupabaseURL   string
	SupabaseKey   string
	SQLitePath    string
}

// NewStore builds the configured backend. In auto mode a database URL wins,
// then Supabase credentials, then a local SQLite file.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	if opts.Table == "" {
		opts.Table = "patient_records"
	}
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" || backend == "auto" {
		switch {
		case opts.DatabaseURL != "":
			backend = "postgres"
		case opts.SupabaseURL != "" && opts.SupabaseKey != "":
			backend = "supabase"
		default:
			backend = "sqlite"
		}
	}
	log.Info().Str("backend", backend).Str("table", opts.Table).Msg("record store")

	switch backend {
	case "postgres":
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("RECORD_STORE=postgres requires DATABASE_URL")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL, opts.Table, opts.NotifyChannel)
	case "supabase":
		return NewSupabaseStore(opts.SupabaseURL, opts.SupabaseKey, opts.Table)
	case "sqlite":
		if opts.SQLitePath == "" {
			opts.SQLitePath = "responder.db"
		}
		return NewSQLiteStore(opts.SQLitePath, opts.Table)
	case "memory":
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported RECORD_STORE %q (expected auto|postgres|supabase|sqlite|memory)", opts.Backend)
	}
}

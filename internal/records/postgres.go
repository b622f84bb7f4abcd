package records

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore writes records to a PostgreSQL table and optionally notifies
// listeners on a channel with the new record id.
type PostgresStore struct {
	pool          *pgxpool.Pool
	table         string
	notifyChannel string
}

func NewPostgresStore(ctx context.Context, databaseURL, table, notifyChannel string) (*PostgresStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &PostgresStore{
		pool:          pool,
		table:         pgx.Identifier{table}.Sanitize(),
		notifyChannel: notifyChannel,
	}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		subject_name TEXT NOT NULL,
		description TEXT NOT NULL,
		record_date DATE NOT NULL,
		record_time TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`, s.table)
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init schema failed on %q: %w", stmt, err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	fill(&record)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, session_id, subject_name, description, record_date, record_time, image_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table),
		record.ID,
		record.SessionID,
		record.SubjectName,
		record.Description,
		record.Date,
		record.Time,
		record.ImageURL,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if s.notifyChannel != "" {
		// Delivered on commit, so listeners never see an uncommitted id.
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, s.notifyChannel, record.ID); err != nil {
			return fmt.Errorf("notify record: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, session_id, subject_name, description, to_char(record_date, 'YYYY-MM-DD'), record_time, image_url, created_at
		 FROM %s ORDER BY created_at DESC LIMIT $1`, s.table),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.SessionID, &r.SubjectName, &r.Description, &r.Date, &r.Time, &r.ImageURL, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

package records

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps records in a local file on the kiosk.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

func NewSQLiteStore(path, table string) (*SQLiteStore, error) {
	if err := validTable(table); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db, table: table}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL UNIQUE,
		subject_name TEXT NOT NULL,
		description TEXT NOT NULL,
		record_date TEXT NOT NULL,
		record_time TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`, s.table)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	fill(&record)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, session_id, subject_name, description, record_date, record_time, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.table),
		record.ID,
		record.SessionID,
		record.SubjectName,
		record.Description,
		record.Date,
		record.Time,
		record.ImageURL,
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, session_id, subject_name, description, record_date, record_time, image_url, created_at
		 FROM %s ORDER BY created_at DESC LIMIT ?`, s.table), limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0, limit)
	for rows.Next() {
		var (
			r       Record
			created string
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.SubjectName, &r.Description, &r.Date, &r.Time, &r.ImageURL, &created); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

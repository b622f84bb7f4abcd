package records

import (
	"context"
	"fmt"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

// SupabaseStore writes records into a Supabase table through PostgREST.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

type supabaseRow struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	SubjectName string `json:"subject_name"`
	Description string `json:"description"`
	RecordDate  string `json:"record_date"`
	RecordTime  string `json:"record_time"`
	ImageURL    string `json:"image_url"`
	CreatedAt   string `json:"created_at"`
}

func NewSupabaseStore(url, key, table string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	if err := validTable(table); err != nil {
		return nil, err
	}
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &SupabaseStore{client: client, table: table}, nil
}

func (s *SupabaseStore) Append(ctx context.Context, record Record) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fill(&record)
	row := supabaseRow{
		ID:          record.ID,
		SessionID:   record.SessionID,
		SubjectName: record.SubjectName,
		Description: record.Description,
		RecordDate:  record.Date,
		RecordTime:  record.Time,
		ImageURL:    record.ImageURL,
		CreatedAt:   record.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if _, _, err := s.client.From(s.table).Insert(row, false, "", "minimal", "").Execute(); err != nil {
		return fmt.Errorf("insert record into supabase: %w", err)
	}
	return nil
}

func (s *SupabaseStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	var rows []supabaseRow
	_, err := s.client.From(s.table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query supabase records: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			ID:          r.ID,
			SessionID:   r.SessionID,
			SubjectName: r.SubjectName,
			Description: r.Description,
			Date:        r.RecordDate,
			Time:        r.RecordTime,
			ImageURL:    r.ImageURL,
		})
	}
	return out, nil
}

func (s *SupabaseStore) Close() error { return nil }

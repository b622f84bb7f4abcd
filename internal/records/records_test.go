package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewStampsDateAndTime(t *testing.T) {
	now := time.Date(2026, 3, 9, 14, 5, 7, 0, time.Local)
	r := New("sess-1", "Alice", "Headache for two days.", now)
	require.Equal(t, "2026-03-09", r.Date)
	require.Equal(t, "14:05:07", r.Time)
	require.Equal(t, "Alice", r.SubjectName)
	require.NotEmpty(t, r.ID)
	require.NoError(t, r.Validate())
}

func TestValidateRejectsEmptyDescription(t *testing.T) {
	r := New("sess-1", "Alice", "", time.Now())
	require.ErrorIs(t, r.Validate(), ErrNoSummary)
}

func TestInMemoryStoreRecentNewestFirst(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Append(ctx, New("a", "Alice", "first", now)))
	require.NoError(t, s.Append(ctx, New("b", "Bob", "second", now)))
	require.NoError(t, s.Append(ctx, New("c", "Unknown", "third", now)))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "third", got[0].Description)
	require.Equal(t, "second", got[1].Description)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := NewSQLiteStore(path, "patient_records")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	first := New("sess-1", "Alice", "Headache.", time.Now().Add(-time.Minute))
	second := New("sess-2", "Unknown", "Dizziness.", time.Now())
	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, second.ID, got[0].ID)
	require.Equal(t, second.Date, got[0].Date)
	require.Equal(t, second.Time, got[0].Time)
	require.Equal(t, first.SubjectName, got[1].SubjectName)

	// One record per session.
	require.Error(t, s.Append(ctx, New("sess-1", "Alice", "again", time.Now())))
}

func TestNewStoreRejectsBadTable(t *testing.T) {
	_, err := NewStore(context.Background(), Options{Backend: "sqlite", Table: "records; drop", SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.ErrorIs(t, err, ErrInvalidTable)
}

func TestNewStoreBackends(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(ctx, Options{Backend: "memory"})
	require.NoError(t, err)
	require.IsType(t, &InMemoryStore{}, s)

	s, err = NewStore(ctx, Options{SQLitePath: filepath.Join(t.TempDir(), "auto.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(ctx, Options{Backend: "postgres"})
	require.ErrorContains(t, err, "DATABASE_URL")

	_, err = NewStore(ctx, Options{Backend: "notion"})
	require.ErrorContains(t, err, "unsupported RECORD_STORE")
}

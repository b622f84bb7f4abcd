package records

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

var (
	ErrNoSummary    = errors.New("record has no description")
	ErrInvalidTable = errors.New("record table name must be a plain identifier")
)

var tablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Record is the summary of one patient session handed off to clinical staff.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	SubjectName string    `json:"subject_name"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// New stamps a record for subject with the local date and time of now.
func New(sessionID, subject, description string, now time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		SubjectName: subject,
		Description: description,
		Date:        now.Format(DateLayout),
		Time:        now.Format(TimeLayout),
		CreatedAt:   now.UTC(),
	}
}

// Validate checks the fields every backend requires.
func (r Record) Validate() error {
	if r.Description == "" {
		return ErrNoSummary
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return err
	}
	if _, err := time.Parse(TimeLayout, r.Time); err != nil {
		return err
	}
	return nil
}

// Store appends session records. Append is called at most once per session
// and is never retried by the caller.
type Store interface {
	Append(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

func fill(r *Record) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

func validTable(name string) error {
	if !tablePattern.MatchString(name) {
		return ErrInvalidTable
	}
	return nil
}

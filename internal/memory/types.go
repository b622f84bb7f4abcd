package memory

import (
	"context"
	"time"
)

// TranscriptLine stores a single spoken line of a session for audit.
type TranscriptLine struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Subject     string    `json:"subject"`
	Seq         int       `json:"seq"`
	Speaker     string    `json:"speaker"`
	Content     string    `json:"content"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists the audit transcript of finished and running sessions.
type Store interface {
	SaveLine(ctx context.Context, line TranscriptLine) error
	Transcript(ctx context.Context, sessionID string) ([]TranscriptLine, error)
	Close() error
}

package responder

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdentifying   State = "identifying"
	StateGreeting      State = "greeting"
	StateAwaitingReply State = "awaiting_reply"
	StateClosing       State = "closing"
	StateSummarizing   State = "summarizing"
	StateFinalized     State = "finalized"
)

// Termination records why the turn loop ended.
type Termination string

const (
	TerminationNone            Termination = ""
	TerminationBudgetExhausted Termination = "budget_exhausted"
	TerminationUserQuit        Termination = "user_quit"
	TerminationClosingPhrase   Termination = "closing_phrase"
	TerminationError           Termination = "error"
)

type Speaker string

const (
	SpeakerResponder Speaker = "responder"
	SpeakerPatient   Speaker = "patient"
)

// Line is one transcript entry.
type Line struct {
	Seq     int       `json:"seq"`
	Speaker Speaker   `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Session is one patient encounter. It is owned by the goroutine running the
// controller; other goroutines see it only through Snapshot copies.
type Session struct {
	ID          string      `json:"session_id"`
	Subject     string      `json:"subject"`
	State       State       `json:"state"`
	Budget      int         `json:"budget"`
	Remaining   int         `json:"remaining_questions"`
	Transcript  []Line      `json:"transcript"`
	Termination Termination `json:"termination,omitempty"`
	RecordID    string      `json:"record_id,omitempty"`
	Error       string      `json:"error,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	EndedAt     *time.Time  `json:"ended_at,omitempty"`

	closingDelivered bool
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Snapshot returns a deep copy safe to hand to other goroutines.
func (s *Session) Snapshot() Session {
	c := *s
	c.Transcript = append([]Line(nil), s.Transcript...)
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return c
}

// Done reports whether the session reached its final state.
func (s *Session) Done() bool { return s.State == StateFinalized }

// terminate sets the termination cause once; later calls are ignored.
func (s *Session) terminate(t Termination) bool {
	if s.Termination != TerminationNone {
		return false
	}
	s.Termination = t
	return true
}

func (s *Session) appendLine(speaker Speaker, text string, at time.Time) Line {
	line := Line{Seq: len(s.Transcript) + 1, Speaker: speaker, Text: text, At: at.UTC()}
	s.Transcript = append(s.Transcript, line)
	return line
}

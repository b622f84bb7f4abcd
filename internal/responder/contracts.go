package responder

import (
	"context"
	"strings"
	"time"

	"github.com/ent0n29/responder/internal/audio"
	"github.com/ent0n29/responder/internal/dialogue"
	"github.com/ent0n29/responder/internal/records"
)

// Identifier labels whoever stands in front of the kiosk. It never fails;
// "Unknown" is a valid answer.
type Identifier interface {
	Identify(ctx context.Context) string
}

// Transcriber captures one fixed-length reply as text. Errors end the session.
type Transcriber interface {
	Capture(ctx context.Context, d time.Duration) (string, error)
}

// Synthesizer voices an utterance. Errors are logged and the session goes on.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) (audio.Handle, error)
	Play(ctx context.Context, h audio.Handle) error
}

// DialogueModel picks the next responder utterance and writes the final
// summary. Errors end the session.
type DialogueModel interface {
	NextUtterance(ctx context.Context, p dialogue.Prompt) (string, error)
	Summarize(ctx context.Context, history string) (string, error)
}

// RecordStore files the end-of-session record. Append is called at most once
// per session and never retried.
type RecordStore interface {
	Append(ctx context.Context, r records.Record) error
}

// Observer is told about session progress. Implementations must not block
// for long; they run on the session goroutine.
type Observer interface {
	SessionStarted(ctx context.Context, s Session)
	StateChanged(ctx context.Context, s Session)
	LineAppended(ctx context.Context, s Session, line Line)
	Finalized(ctx context.Context, s Session, rec *records.Record, err error)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(context.Context, Session)                    {}
func (nopObserver) StateChanged(context.Context, Session)                      {}
func (nopObserver) LineAppended(context.Context, Session, Line)                {}
func (nopObserver) Finalized(context.Context, Session, *records.Record, error) {}

// IsClosingUtterance reports whether a responder utterance contains the
// closing phrase. Matching is an exact, case-sensitive substring test.
func IsClosingUtterance(utterance, phrase string) bool {
	return phrase != "" && strings.Contains(utterance, phrase)
}

// IsQuitReply reports whether a patient reply asks to stop. Matching is a
// case-insensitive substring test, so "Quit." and "I want to quit" both count.
func IsQuitReply(reply, marker string) bool {
	return marker != "" && strings.Contains(strings.ToLower(reply), strings.ToLower(marker))
}

package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/responder/internal/events"
	"github.com/ent0n29/responder/internal/memory"
	"github.com/ent0n29/responder/internal/policy"
	"github.com/ent0n29/responder/internal/records"
	"github.com/ent0n29/responder/internal/responder"
	"github.com/ent0n29/responder/internal/session"
)

// kioskObserver mirrors controller progress into the session registry, the
// event publishers and the audit transcript. Every sink is best effort.
type kioskObserver struct {
	sessions  *session.Manager
	publisher events.Publisher
	audit     memory.Store
}

func (o *kioskObserver) SessionStarted(ctx context.Context, s responder.Session) {
	o.update(s)
	o.publish(ctx, events.Event{
		Type:      events.TypeSessionStarted,
		SessionID: s.ID,
		Remaining: events.IntPtr(s.Remaining),
	})
}

func (o *kioskObserver) StateChanged(ctx context.Context, s responder.Session) {
	o.update(s)
	o.publish(ctx, events.Event{
		Type:      events.TypeSessionState,
		SessionID: s.ID,
		Subject:   s.Subject,
		State:     string(s.State),
		Remaining: events.IntPtr(s.Remaining),
	})
}

func (o *kioskObserver) LineAppended(ctx context.Context, s responder.Session, line responder.Line) {
	o.update(s)
	text, redacted := policy.RedactPII(line.Text)
	o.publish(ctx, events.Event{
		Type:      events.TypeTranscriptLine,
		SessionID: s.ID,
		Seq:       line.Seq,
		Speaker:   string(line.Speaker),
		Text:      text,
		Remaining: events.IntPtr(s.Remaining),
	})
	if o.audit == nil {
		return
	}
	err := o.audit.SaveLine(ctx, memory.TranscriptLine{
		ID:          uuid.NewString(),
		SessionID:   s.ID,
		Subject:     s.Subject,
		Seq:         line.Seq,
		Speaker:     string(line.Speaker),
		Content:     text,
		PIIRedacted: redacted,
		CreatedAt:   line.At,
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Int("seq", line.Seq).Msg("audit transcript write failed")
	}
}

// Finalized announces the outcome and only then releases the kiosk, so the
// next session's events always follow this session's record.
func (o *kioskObserver) Finalized(ctx context.Context, s responder.Session, rec *records.Record, err error) {
	ev := events.Event{
		Type:        events.TypeSessionFinalized,
		SessionID:   s.ID,
		Subject:     s.Subject,
		State:       string(s.State),
		Termination: string(s.Termination),
		Remaining:   events.IntPtr(s.Remaining),
		RecordID:    s.RecordID,
	}
	if err != nil {
		ev.Detail = policy.Redact(err.Error())
	}
	o.publish(ctx, ev)
	if rec != nil {
		o.publish(ctx, events.Event{
			Type:      events.TypeRecordFiled,
			SessionID: s.ID,
			Subject:   rec.SubjectName,
			RecordID:  rec.ID,
		})
	}
	if endErr := o.sessions.End(s); endErr != nil {
		log.Warn().Err(endErr).Str("session_id", s.ID).Msg("session registry end failed")
	}
}

func (o *kioskObserver) update(s responder.Session) {
	if err := o.sessions.Update(s); err != nil {
		log.Debug().Err(err).Str("session_id", s.ID).Msg("session snapshot not registered")
	}
}

func (o *kioskObserver) publish(ctx context.Context, ev events.Event) {
	if o.publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Str("session_id", ev.SessionID).Msg("event publish failed")
	}
}

package responder

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ent0n29/responder/internal/audio"
	"github.com/ent0n29/responder/internal/config"
	"github.com/ent0n29/responder/internal/dialogue"
	"github.com/ent0n29/responder/internal/identity"
	"github.com/ent0n29/responder/internal/memory"
	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/policy"
	"github.com/ent0n29/responder/internal/records"
)

// Deps are the collaborators a Controller drives. Observer and Metrics are optional.
type Deps struct {
	Identity Identifier
	Ears     Transcriber
	Voice    Synthesizer
	Model    DialogueModel
	Records  RecordStore
	Scratch  *audio.Scratch
	Observer Observer
	Metrics  *observability.Metrics
}

type Settings struct {
	Budget          int
	CaptureDuration time.Duration
	MemoryWindow    int
	FinalizeTimeout time.Duration
	Prompts         config.Prompts
}

func DefaultSettings() Settings {
	return Settings{
		Budget:          7,
		CaptureDuration: 5 * time.Second,
		MemoryWindow:    5,
		FinalizeTimeout: 30 * time.Second,
		Prompts:         config.DefaultPrompts(),
	}
}

// SettingsFromConfig picks the session knobs out of cfg.
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		Budget:          cfg.QuestionBudget,
		CaptureDuration: cfg.CaptureDuration,
		MemoryWindow:    cfg.MemoryWindow,
		FinalizeTimeout: cfg.FinalizeTimeout,
		Prompts:         cfg.Prompts,
	}
}

// Controller runs patient sessions one at a time: identify, greet, a bounded
// question loop, a farewell, then a summary filed as exactly one record.
type Controller struct {
	deps     Deps
	settings Settings
	now      func() time.Time
}

func New(deps Deps, settings Settings) (*Controller, error) {
	var missing []string
	if deps.Identity == nil {
		missing = append(missing, "identity")
	}
	if deps.Ears == nil {
		missing = append(missing, "transcriber")
	}
	if deps.Voice == nil {
		missing = append(missing, "synthesizer")
	}
	if deps.Model == nil {
		missing = append(missing, "dialogue model")
	}
	if deps.Records == nil {
		missing = append(missing, "record store")
	}
	if deps.Scratch == nil {
		missing = append(missing, "scratch dir")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("responder: missing %s", strings.Join(missing, ", "))
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if settings.Budget < 1 {
		return nil, fmt.Errorf("responder: question budget must be >= 1")
	}
	if settings.CaptureDuration <= 0 {
		settings.CaptureDuration = 5 * time.Second
	}
	if settings.FinalizeTimeout <= 0 {
		settings.FinalizeTimeout = 30 * time.Second
	}
	if settings.Prompts.Greeting == "" {
		settings.Prompts = config.DefaultPrompts()
	}
	if settings.Prompts.Reask == "" {
		settings.Prompts.Reask = config.DefaultPrompts().Reask
	}
	return &Controller{deps: deps, settings: settings, now: time.Now}, nil
}

// PanicError carries a panic recovered from a session.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("responder: session panicked: %v", e.Value)
}

// StartAssistanceFlow runs one complete session and returns its final state.
func (c *Controller) StartAssistanceFlow(ctx context.Context) (Session, error) {
	s := NewSession()
	err := c.Run(ctx, s)
	return s.Snapshot(), err
}

// Run drives s from identification to its record. Summarizing and filing run
// on every exit path, including faults and panics, exactly once. Transcription
// and dialogue faults are returned after finalization; a failed summary or
// record write is joined onto the returned error.
func (c *Controller) Run(ctx context.Context, s *Session) (err error) {
	r := &run{
		Controller: c,
		s:          s,
		mem:        memory.NewWindow(c.settings.MemoryWindow),
		log:        log.With().Str("session_id", s.ID).Logger(),
	}
	s.Budget = c.settings.Budget
	s.Remaining = c.settings.Budget
	started := c.now()
	c.deps.Metrics.SessionStarted()
	c.deps.Observer.SessionStarted(ctx, s.Snapshot())
	r.log.Info().Int("budget", s.Budget).Msg("session started")

	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
		if err != nil {
			s.terminate(TerminationError)
			s.Error = err.Error()
		}
		if ferr := r.finalize(ctx); ferr != nil {
			err = joinErr(err, ferr)
		}
		c.deps.Metrics.ObserveStage(observability.StageSession, c.now().Sub(started))
		c.deps.Metrics.SessionEnded(string(s.Termination))
	}()

	return r.converse(ctx)
}

// run is the per-session working set.
type run struct {
	*Controller
	s   *Session
	mem *memory.Window
	log zerolog.Logger
}

func (r *run) converse(ctx context.Context) error {
	p := r.settings.Prompts

	r.setState(ctx, StateIdentifying)
	start := r.now()
	r.s.Subject = r.identify(ctx)
	r.deps.Metrics.ObserveStage(observability.StageIdentify, r.now().Sub(start))
	r.log = r.log.With().Str("subject", r.s.Subject).Logger()
	r.log.Info().Msg("subject identified")

	r.setState(ctx, StateGreeting)
	utterance := fmt.Sprintf(p.Greeting, r.s.Subject)
	r.appendLine(ctx, SpeakerResponder, utterance)

	for {
		r.speak(ctx, utterance, r.deps.Scratch.ResponsePath())

		if IsClosingUtterance(utterance, p.ClosingPhrase) {
			r.s.closingDelivered = true
			r.s.terminate(TerminationClosingPhrase)
			break
		}

		r.setState(ctx, StateAwaitingReply)
		start := r.now()
		reply, err := r.deps.Ears.Capture(ctx, r.settings.CaptureDuration)
		r.deps.Metrics.ObserveStage(observability.StageCapture, r.now().Sub(start))
		if err != nil {
			return fmt.Errorf("capture reply: %w", err)
		}
		r.appendLine(ctx, SpeakerPatient, reply)

		if IsQuitReply(reply, p.QuitMarker) {
			r.s.terminate(TerminationUserQuit)
			break
		}

		r.mem.Append(memory.Exchange{Responder: utterance, Patient: reply})
		r.s.Remaining--
		r.deps.Metrics.TurnCompleted()
		r.log.Debug().Int("remaining", r.s.Remaining).Msg("turn completed")
		if r.s.Remaining <= 0 {
			r.s.Remaining = 0
			r.s.terminate(TerminationBudgetExhausted)
			break
		}

		start = r.now()
		next, err := r.deps.Model.NextUtterance(ctx, dialogue.Prompt{
			History:   r.mem.History(),
			Reply:     reply,
			Subject:   r.s.Subject,
			Budget:    r.s.Budget,
			Remaining: r.s.Remaining,
		})
		r.deps.Metrics.ObserveStage(observability.StageDialogue, r.now().Sub(start))
		if err != nil && !errors.Is(err, dialogue.ErrEmptyCompletion) {
			return fmt.Errorf("next utterance: %w", err)
		}
		utterance = strings.TrimSpace(next)
		if utterance == "" {
			r.log.Warn().Msg("dialogue model returned nothing, asking again")
			utterance = p.Reask
		}
		r.appendLine(ctx, SpeakerResponder, utterance)
	}

	r.log.Info().Str("termination", string(r.s.Termination)).Int("remaining", r.s.Remaining).Msg("turn loop ended")
	r.setState(ctx, StateClosing)
	if !r.s.closingDelivered {
		r.appendLine(ctx, SpeakerResponder, p.Farewell)
		r.speak(ctx, p.Farewell, r.deps.Scratch.FinalPath())
		r.s.closingDelivered = true
	}
	return nil
}

func (r *run) identify(ctx context.Context) string {
	label := strings.TrimSpace(r.deps.Identity.Identify(ctx))
	if label == "" {
		return identity.Unknown
	}
	return label
}

// speak voices text through a scratch file that is removed afterwards.
// Failures are logged and swallowed.
func (r *run) speak(ctx context.Context, text, path string) {
	defer func() {
		if err := audio.Remove(path); err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("scratch audio cleanup failed")
		}
	}()
	start := r.now()
	h, err := r.deps.Voice.Synthesize(ctx, text, path)
	r.deps.Metrics.ObserveStage(observability.StageSynthesize, r.now().Sub(start))
	if err != nil {
		r.log.Warn().Err(err).Msg("synthesis failed, continuing without audio")
		return
	}
	if err := r.deps.Voice.Play(ctx, h); err != nil {
		r.log.Warn().Err(err).Msg("playback failed, continuing")
	}
}

// finalize summarizes the retained exchanges and files one record. It runs on
// a context detached from cancellation so a cancelled session is still filed.
func (r *run) finalize(parent context.Context) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.settings.FinalizeTimeout)
	defer cancel()

	var rec *records.Record
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
		if err != nil {
			r.log.Error().Err(err).Msg("session finalization failed")
		}
		ended := r.now().UTC()
		r.s.EndedAt = &ended
		r.setState(ctx, StateFinalized)
		r.deps.Observer.Finalized(ctx, r.s.Snapshot(), rec, err)
	}()

	r.setState(ctx, StateSummarizing)
	if r.mem.IsEmpty() {
		r.log.Info().Str("termination", string(r.s.Termination)).Msg("no completed exchanges, nothing to file")
		return nil
	}

	start := r.now()
	summary, err := r.deps.Model.Summarize(ctx, r.mem.History())
	r.deps.Metrics.ObserveStage(observability.StageSummarize, r.now().Sub(start))
	if err != nil {
		return fmt.Errorf("summarize session: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return records.ErrNoSummary
	}

	filed := records.New(r.s.ID, r.s.Subject, summary, r.now())
	start = r.now()
	err = r.deps.Records.Append(ctx, filed)
	r.deps.Metrics.ObserveStage(observability.StageRecord, r.now().Sub(start))
	if err != nil {
		r.deps.Metrics.RecordWrite("error")
		return fmt.Errorf("file record: %w", err)
	}
	r.deps.Metrics.RecordWrite("ok")
	r.s.RecordID = filed.ID
	rec = &filed
	r.log.Info().Str("record_id", filed.ID).Str("termination", string(r.s.Termination)).Msg("record filed")
	return nil
}

func (r *run) setState(ctx context.Context, st State) {
	if r.s.State == st {
		return
	}
	r.s.State = st
	r.deps.Metrics.SessionEvent(string(st))
	r.deps.Observer.StateChanged(ctx, r.s.Snapshot())
}

func (r *run) appendLine(ctx context.Context, speaker Speaker, text string) {
	line := r.s.appendLine(speaker, text, r.now())
	r.log.Debug().Str("speaker", string(speaker)).Str("text", policy.Redact(text)).Msg("transcript")
	r.deps.Observer.LineAppended(ctx, r.s.Snapshot(), line)
}

// joinErr keeps a lone error unwrapped so callers can type-assert it.
func joinErr(a, b error) error {
	if a == nil {
		return b
	}
	return errors.Join(a, b)
}

package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ent0n29/responder/internal/responder"
	"github.com/ent0n29/responder/internal/session"
)

// Kiosk runs patient sessions one at a time on behalf of the API and CLI.
type Kiosk struct {
	controller *responder.Controller
	sessions   *session.Manager

	// base outlives individual requests but is cancelled on shutdown. A
	// running session then takes its error path and still files its record.
	base context.Context
	wg   sync.WaitGroup
}

func NewKiosk(base context.Context, controller *responder.Controller, sessions *session.Manager) *Kiosk {
	return &Kiosk{controller: controller, sessions: sessions, base: base}
}

// Start registers a new session and runs it in the background. It returns
// session.ErrBusy while another patient is being seen.
func (k *Kiosk) Start(_ context.Context) (responder.Session, error) {
	s := responder.NewSession()
	if err := k.sessions.Begin(s.Snapshot()); err != nil {
		return responder.Session{}, err
	}
	snapshot := s.Snapshot()
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		if err := k.controller.Run(k.base, s); err != nil {
			log.Error().Err(err).Str("session_id", s.ID).Msg("session ended with error")
		}
	}()
	return snapshot, nil
}

// RunForeground runs one session on the calling goroutine.
func (k *Kiosk) RunForeground(ctx context.Context) (responder.Session, error) {
	s := responder.NewSession()
	if err := k.sessions.Begin(s.Snapshot()); err != nil {
		return responder.Session{}, err
	}
	err := k.controller.Run(ctx, s)
	return s.Snapshot(), err
}

// Wait blocks until background sessions finish or ctx is done.
func (k *Kiosk) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("sessions still running at shutdown"), ctx.Err())
	}
}

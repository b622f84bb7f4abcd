package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ent0n29/responder/internal/responder"
)

func TestManagerBeginUpdateEnd(t *testing.T) {
	m := NewManager(time.Minute)
	s := responder.NewSession()
	require.NoError(t, m.Begin(s.Snapshot()))
	require.Equal(t, 1, m.ActiveCount())

	s.Subject = "Alice"
	s.State = responder.StateAwaitingReply
	require.NoError(t, m.Update(s.Snapshot()))

	got, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Subject)
	require.Equal(t, responder.StateAwaitingReply, got.State)

	s.Termination = responder.TerminationUserQuit
	require.NoError(t, m.End(s.Snapshot()))
	got, err = m.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, responder.StateFinalized, got.State)
	require.Equal(t, 0, m.ActiveCount())
}

func TestManagerRejectsSecondActiveSession(t *testing.T) {
	m := NewManager(time.Minute)
	first := responder.NewSession()
	require.NoError(t, m.Begin(first.Snapshot()))

	second := responder.NewSession()
	require.ErrorIs(t, m.Begin(second.Snapshot()), ErrBusy)

	require.NoError(t, m.End(first.Snapshot()))
	require.NoError(t, m.Begin(second.Snapshot()))
	cur, err := m.Current()
	require.NoError(t, err)
	require.Equal(t, second.ID, cur.ID)
}

func TestManagerUnknownSession(t *testing.T) {
	m := NewManager(time.Minute)
	_, err := m.Current()
	require.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, m.Update(responder.Session{ID: "missing"}), ErrNotFound)
}

func TestManagerExpiresFinishedSessions(t *testing.T) {
	m := NewManager(time.Minute)
	var expired []string
	m.SetExpireHook(func(s responder.Session) { expired = append(expired, s.ID) })

	done := responder.NewSession()
	require.NoError(t, m.Begin(done.Snapshot()))
	require.NoError(t, m.End(done.Snapshot()))

	m.expireFinished(time.Now().UTC().Add(30 * time.Second))
	require.Empty(t, expired)

	m.expireFinished(time.Now().UTC().Add(2 * time.Minute))
	require.Equal(t, []string{done.ID}, expired)
	_, err := m.Current()
	require.ErrorIs(t, err, ErrNotFound)
}

func TestManagerKeepsRunningSessions(t *testing.T) {
	m := NewManager(time.Millisecond)
	running := responder.NewSession()
	require.NoError(t, m.Begin(running.Snapshot()))

	m.expireFinished(time.Now().UTC().Add(time.Hour))
	_, err := m.Get(running.ID)
	require.NoError(t, err)
}

func TestManagerOnlyEndFreesTheKiosk(t *testing.T) {
	m := NewManager(time.Minute)
	s := responder.NewSession()
	require.NoError(t, m.Begin(s.Snapshot()))

	s.State = responder.StateSummarizing
	require.NoError(t, m.Update(s.Snapshot()))
	s.State = responder.StateFinalized
	require.NoError(t, m.Update(s.Snapshot()))

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	require.Equal(t, responder.StateSummarizing, got.State)
	require.ErrorIs(t, m.Begin(responder.NewSession().Snapshot()), ErrBusy)

	require.NoError(t, m.End(s.Snapshot()))
	require.NoError(t, m.Begin(responder.NewSession().Snapshot()))
}

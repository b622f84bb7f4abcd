package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClientMessageControl(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"client_control","action":"start"}`))
	require.NoError(t, err)
	control, ok := msg.(ClientControl)
	require.True(t, ok)
	require.Equal(t, ActionStart, control.Action)
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestParseClientMessageRejectsUnknownAction(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_control","action":"dance"}`))
	require.ErrorContains(t, err, "dance")
}

func TestHubFanOut(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	require.Equal(t, 2, h.Subscribers())

	ev := Event{Type: TypeSessionStarted, SessionID: "s1"}
	require.NoError(t, h.Publish(context.Background(), ev))
	require.Equal(t, ev, <-a)
	require.Equal(t, ev, <-b)

	cancelA()
	cancelA()
	_, open := <-a
	require.False(t, open)
	require.Equal(t, 1, h.Subscribers())
	cancelB()
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	ctx := context.Background()
	require.NoError(t, h.Publish(ctx, Event{Type: TypeSessionState, Seq: 1}))
	require.NoError(t, h.Publish(ctx, Event{Type: TypeSessionState, Seq: 2}))
	require.Equal(t, 1, (<-ch).Seq)
	require.Empty(t, ch)
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	err := Multi{h, nil, failingPublisher{err: boom}}.Publish(context.Background(), Event{Type: TypeRecordFiled})
	require.ErrorIs(t, err, boom)
	require.Equal(t, TypeRecordFiled, (<-ch).Type)
}

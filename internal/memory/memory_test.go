package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowKeepsLastK(t *testing.T) {
	const k = 5
	w := NewWindow(k)
	require.True(t, w.IsEmpty())

	for i := 1; i <= k+3; i++ {
		w.Append(Exchange{Responder: fmt.Sprintf("q%d", i), Patient: fmt.Sprintf("a%d", i)})
		require.LessOrEqual(t, w.Len(), k)
	}

	got := w.Exchanges()
	require.Len(t, got, k)
	for i, e := range got {
		require.Equal(t, fmt.Sprintf("q%d", i+4), e.Responder)
		require.Equal(t, fmt.Sprintf("a%d", i+4), e.Patient)
	}
	require.False(t, w.IsEmpty())
}

func TestWindowHistoryOldestFirst(t *testing.T) {
	w := NewWindow(2)
	w.Append(Exchange{Responder: "How can I help?", Patient: "I have a headache"})
	w.Append(Exchange{Responder: "Since when?", Patient: "Two days"})

	want := "Responder: How can I help?\nPatient: I have a headache\nResponder: Since when?\nPatient: Two days"
	require.Equal(t, want, w.History())

	w.Append(Exchange{Responder: "Any fever?", Patient: "No"})
	require.Equal(t, "Responder: Since when?\nPatient: Two days\nResponder: Any fever?\nPatient: No", w.History())
}

func TestWindowEmptyHistory(t *testing.T) {
	w := NewWindow(0)
	require.Equal(t, 1, w.Cap())
	require.Equal(t, "", w.History())
}

func TestInMemoryStoreTranscriptOrder(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.SaveLine(ctx, TranscriptLine{SessionID: "s1", Seq: 1, Speaker: "patient", Content: "b"}))
	require.NoError(t, s.SaveLine(ctx, TranscriptLine{SessionID: "s1", Seq: 0, Speaker: "responder", Content: "a"}))
	require.NoError(t, s.SaveLine(ctx, TranscriptLine{SessionID: "s2", Seq: 0, Speaker: "responder", Content: "other"}))

	lines, err := s.Transcript(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, "a", lines[0].Content)
	require.Equal(t, "b", lines[1].Content)
	require.NotEmpty(t, lines[0].ID)
	require.False(t, lines[0].CreatedAt.IsZero())

	none, err := s.Transcript(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, none)
}

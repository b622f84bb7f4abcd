package voice

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ent0n29/responder/internal/audio"
)

// MockEngine renders silence sized to the text so the kiosk can run without
// a TTS provider.
type MockEngine struct{}

func NewMockEngine() *MockEngine { return &MockEngine{} }

func (MockEngine) Name() string { return "mock" }

func (MockEngine) Render(_ context.Context, text string) ([]byte, int, error) {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	// ~150 words per minute.
	d := time.Duration(words) * 400 * time.Millisecond
	samples := int(d.Seconds() * audio.DefaultSampleRate)
	return make([]byte, samples*2), audio.DefaultSampleRate, nil
}

// NullPlayer accepts any file without playing it.
type NullPlayer struct{}

func (NullPlayer) Play(_ context.Context, path string) error {
	_, err := os.Stat(path)
	return err
}

// ScriptedTranscriber answers captures with canned replies, then with the
// last one forever. It stands in for the microphone in mock mode.
type ScriptedTranscriber struct {
	mu      sync.Mutex
	replies []string
	next    int
}

func NewScriptedTranscriber(replies ...string) *ScriptedTranscriber {
	return &ScriptedTranscriber{replies: replies}
}

func (s *ScriptedTranscriber) Capture(ctx context.Context, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.replies) == 0 {
		return "", nil
	}
	i := s.next
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	} else {
		s.next++
	}
	return s.replies[i], nil
}

package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/reliability"
)

// Listener records one fixed-length reply and transcribes it.
type Listener struct {
	Recorder   Recorder
	Recognizer Recognizer
	Metrics    *observability.Metrics
}

func NewListener(recorder Recorder, recognizer Recognizer, metrics *observability.Metrics) *Listener {
	return &Listener{Recorder: recorder, Recognizer: recognizer, Metrics: metrics}
}

// Capture blocks for d while recording, then returns the trimmed transcript.
// Silence yields an empty string, not an error.
func (l *Listener) Capture(ctx context.Context, d time.Duration) (string, error) {
	tmpDir, err := os.MkdirTemp("", "responder-capture-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	wavPath := filepath.Join(tmpDir, "reply.wav")
	if err := l.Recorder.Record(ctx, d, wavPath); err != nil {
		l.Metrics.ProviderError("recorder", reliability.Classify(err))
		return "", fmt.Errorf("record reply: %w", err)
	}
	text, err := l.Recognizer.Transcribe(ctx, wavPath)
	if err != nil {
		l.Metrics.ProviderError(l.Recognizer.Name(), reliability.Classify(err))
		return "", fmt.Errorf("%s transcribe: %w", l.Recognizer.Name(), err)
	}
	return strings.TrimSpace(text), nil
}

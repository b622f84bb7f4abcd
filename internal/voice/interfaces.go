package voice

import (
	"context"
	"time"
)

// Engine renders text to raw PCM16LE mono audio.
type Engine interface {
	Name() string
	Render(ctx context.Context, text string) (pcm []byte, sampleRate int, err error)
}

// Recorder captures a fixed duration of microphone audio into a WAV file.
type Recorder interface {
	Record(ctx context.Context, d time.Duration, path string) error
}

// Player plays a WAV file to completion.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Recognizer turns a recorded WAV file into text.
type Recognizer interface {
	Name() string
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

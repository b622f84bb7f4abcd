package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/ent0n29/responder/internal/audio"
	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/reliability"
)

// Speaker synthesizes utterances to scratch WAV files and plays them back.
type Speaker struct {
	Engine  Engine
	Player  Player
	Metrics *observability.Metrics
}

func NewSpeaker(engine Engine, player Player, metrics *observability.Metrics) *Speaker {
	return &Speaker{Engine: engine, Player: player, Metrics: metrics}
}

// Synthesize renders the speakable form of text and writes it to path.
func (s *Speaker) Synthesize(ctx context.Context, text, path string) (audio.Handle, error) {
	text = Speakable(text)
	if text == "" {
		return audio.Handle{}, errors.New("nothing to synthesize")
	}
	pcm, rate, err := s.Engine.Render(ctx, text)
	if err != nil {
		s.Metrics.ProviderError(s.Engine.Name(), reliability.Classify(err))
		return audio.Handle{}, fmt.Errorf("%s synthesize: %w", s.Engine.Name(), err)
	}
	if len(pcm) == 0 {
		s.Metrics.ProviderError(s.Engine.Name(), "empty")
		return audio.Handle{}, fmt.Errorf("%s synthesize: no audio", s.Engine.Name())
	}
	if err := audio.WriteWAVFile(path, pcm, rate); err != nil {
		return audio.Handle{}, fmt.Errorf("write %s: %w", path, err)
	}
	return audio.Handle{Path: path, SampleRate: rate}, nil
}

// Play blocks until h has been played.
func (s *Speaker) Play(ctx context.Context, h audio.Handle) error {
	if h.Path == "" {
		return errors.New("no audio to play")
	}
	if err := s.Player.Play(ctx, h.Path); err != nil {
		return fmt.Errorf("play %s: %w", h.Path, err)
	}
	return nil
}

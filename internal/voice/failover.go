package voice

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// FailoverEngine prefers the primary engine and switches to the fallback when
// the primary fails. Once the fallback succeeds it stays active until it
// fails; then the primary is retried.
type FailoverEngine struct {
	primary        Engine
	fallback       Engine
	fallbackActive atomic.Bool
}

func NewFailoverEngine(primary, fallback Engine) *FailoverEngine {
	return &FailoverEngine{primary: primary, fallback: fallback}
}

func (f *FailoverEngine) Name() string {
	if f.fallbackActive.Load() {
		return f.fallback.Name()
	}
	return f.primary.Name()
}

func (f *FailoverEngine) Render(ctx context.Context, text string) ([]byte, int, error) {
	if f.fallbackActive.Load() {
		pcm, rate, fbErr := f.fallback.Render(ctx, text)
		if fbErr == nil {
			return pcm, rate, nil
		}
		pcm, rate, prErr := f.primary.Render(ctx, text)
		if prErr == nil {
			f.fallbackActive.Store(false)
			log.Info().Str("engine", f.primary.Name()).Msg("tts primary restored")
			return pcm, rate, nil
		}
		return nil, 0, fmt.Errorf("tts fallback failed: %v; tts primary failed: %w", fbErr, prErr)
	}

	pcm, rate, prErr := f.primary.Render(ctx, text)
	if prErr == nil {
		return pcm, rate, nil
	}
	pcm, rate, fbErr := f.fallback.Render(ctx, text)
	if fbErr != nil {
		return nil, 0, fmt.Errorf("tts primary failed: %v; tts fallback failed: %w", prErr, fbErr)
	}
	f.fallbackActive.Store(true)
	log.Warn().Err(prErr).Str("engine", f.fallback.Name()).Msg("tts switched to fallback")
	return pcm, rate, nil
}

package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	"github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"
	"github.com/rs/zerolog/log"
)

type DeepgramConfig struct {
	APIKey     string
	Model      string
	SampleRate int
	// IdleWindow ends a render once audio has started and then gone quiet this long.
	IdleWindow time.Duration
	Timeout    time.Duration
}

// DeepgramEngine renders speech with Deepgram Aura over the speak websocket.
type DeepgramEngine struct {
	cfg DeepgramConfig
}

func NewDeepgramEngine(cfg DeepgramConfig) *DeepgramEngine {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "aura-asteria-en"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.IdleWindow <= 0 {
		cfg.IdleWindow = 400 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	return &DeepgramEngine{cfg: cfg}
}

func (e *DeepgramEngine) Name() string { return "deepgram" }

func (e *DeepgramEngine) Render(ctx context.Context, text string) ([]byte, int, error) {
	if e.cfg.APIKey == "" {
		return nil, 0, errors.New("deepgram: API key missing")
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	collector := &pcmCollector{}
	options := &clientinterfaces.WSSpeakOptions{
		Model:      e.cfg.Model,
		Encoding:   "linear16",
		SampleRate: e.cfg.SampleRate,
	}
	dg, err := speak.NewWSUsingCallback(ctx, e.cfg.APIKey, &clientinterfaces.ClientOptions{}, options, collector)
	if err != nil {
		return nil, 0, fmt.Errorf("deepgram: create ws client: %w", err)
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, 0, errors.New("deepgram: connect failed")
	}
	if err := dg.SpeakWithText(text); err != nil {
		return nil, 0, fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		log.Debug().Err(err).Msg("deepgram flush failed")
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			pcm, _ := collector.snapshot()
			if len(pcm) > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return pcm, e.cfg.SampleRate, nil
			}
			return nil, 0, ctx.Err()
		case <-ticker.C:
			pcm, last := collector.snapshot()
			if !last.IsZero() && time.Since(last) > e.cfg.IdleWindow {
				return pcm, e.cfg.SampleRate, nil
			}
			if msg := collector.failure(); msg != "" {
				return nil, 0, fmt.Errorf("deepgram: %s", msg)
			}
		}
	}
}

// pcmCollector accumulates binary frames from the speak websocket.
type pcmCollector struct {
	mu     sync.Mutex
	pcm    []byte
	last   time.Time
	errMsg string
}

func (c *pcmCollector) snapshot() ([]byte, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.pcm...), c.last
}

func (c *pcmCollector) failure() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *pcmCollector) Binary(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pcm = append(c.pcm, data...)
	c.last = time.Now()
	return nil
}

func (c *pcmCollector) Error(er *msginterfaces.ErrorResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if er != nil {
		c.errMsg = strings.TrimSpace(er.ErrMsg + " " + er.Description)
	}
	if c.errMsg == "" {
		c.errMsg = "speak error"
	}
	return nil
}

func (c *pcmCollector) Open(*msginterfaces.OpenResponse) error         { return nil }
func (c *pcmCollector) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (c *pcmCollector) Flush(*msginterfaces.FlushedResponse) error     { return nil }
func (c *pcmCollector) Clear(*msginterfaces.ClearedResponse) error     { return nil }
func (c *pcmCollector) Close(*msginterfaces.CloseResponse) error       { return nil }
func (c *pcmCollector) Warning(*msginterfaces.WarningResponse) error   { return nil }
func (c *pcmCollector) UnhandledEvent([]byte) error                    { return nil }

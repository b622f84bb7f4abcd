package dialogue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
	"github.com/tiktoken-go/tokenizer"

	"github.com/ent0n29/responder/internal/observability"
	"github.com/ent0n29/responder/internal/reliability"
)

var ErrEmptyCompletion = errors.New("dialogue model returned no text")

// Options configures an OpenAI-compatible chat completion backend.
type Options struct {
	APIKey        string
	BaseURL       string
	Model         string
	Temperature   float64
	Timeout       time.Duration
	SystemPrompt  string
	SummaryPrompt string
}

// Client asks an OpenAI-compatible endpoint (Groq by default) for the next
// responder utterance and for the end-of-session summary.
type Client struct {
	api     *openai.Client
	opts    Options
	codec   tokenizer.Codec
	metrics *observability.Metrics
}

func NewClient(opts Options, metrics *observability.Metrics) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("dialogue api key is required")
	}
	if opts.Model == "" {
		return nil, errors.New("dialogue model is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	c := &Client{api: openai.NewClientWithConfig(cfg), opts: opts, metrics: metrics}

	// Llama has no tiktoken encoding; cl100k is close enough for size tracking.
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warn().Err(err).Msg("token codec unavailable, prompt sizes will not be recorded")
	} else {
		c.codec = codec
	}
	return c, nil
}

func (c *Client) NextUtterance(ctx context.Context, p Prompt) (string, error) {
	text, err := c.complete(ctx, Render(c.opts.SystemPrompt, p))
	if err != nil {
		return "", fmt.Errorf("next utterance: %w", err)
	}
	return text, nil
}

func (c *Client) Summarize(ctx context.Context, history string) (string, error) {
	text, err := c.complete(ctx, RenderSummary(c.opts.SummaryPrompt, history))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	c.observeTokens(prompt)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: wireTemperature(c.opts.Temperature),
	})
	if err != nil {
		c.metrics.ProviderError("dialogue", reliability.Classify(err))
		return "", err
	}
	if len(resp.Choices) == 0 {
		c.metrics.ProviderError("dialogue", "empty")
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		c.metrics.ProviderError("dialogue", "empty")
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func (c *Client) observeTokens(prompt string) {
	if c.codec == nil {
		return
	}
	ids, _, err := c.codec.Encode(prompt)
	if err != nil {
		return
	}
	c.metrics.ObservePromptTokens(len(ids))
}

// wireTemperature keeps an explicit 0 on the wire. The request field is
// omitempty, so a literal zero would fall back to the provider default.
func wireTemperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

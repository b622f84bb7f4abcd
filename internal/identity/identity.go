// Package identity recognises the patient standing in front of the kiosk.
// Identification never fails: anything short of a confident match yields Unknown.
package identity

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Unknown is the label used when no face could be matched.
const Unknown = "Unknown"

// FrameSource grabs a single encoded image from a camera.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// Matcher returns the labels of every known face found in frame.
type Matcher interface {
	Match(ctx context.Context, frame []byte) ([]string, error)
}

// Sampler samples frames for a fixed window and votes on the matched labels.
type Sampler struct {
	Source   FrameSource
	Matcher  Matcher
	Window   time.Duration
	Interval time.Duration

	now func() time.Time
}

func NewSampler(source FrameSource, matcher Matcher, window, interval time.Duration) *Sampler {
	if window <= 0 {
		window = 5 * time.Second
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Sampler{Source: source, Matcher: matcher, Window: window, Interval: interval, now: time.Now}
}

// Identify blocks for at most Window and returns the most frequently matched
// label, or Unknown. A camera failure ends sampling early; matcher failures
// skip the frame.
func (s *Sampler) Identify(ctx context.Context) string {
	now := s.now
	if now == nil {
		now = time.Now
	}
	deadline := now().Add(s.Window)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var labels []string
	frames := 0
	for now().Before(deadline) {
		frame, err := s.Source.Frame(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("camera frame failed, ending identification")
			}
			break
		}
		frames++
		matched, err := s.Matcher.Match(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Debug().Err(err).Msg("face match failed for frame")
		}
		labels = append(labels, matched...)

		if !sleep(ctx, s.Interval) {
			break
		}
	}

	label := Vote(labels)
	log.Info().Int("frames", frames).Int("matches", len(labels)).Str("subject", label).Msg("identification finished")
	return label
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Vote returns the label seen most often, preferring the one seen first on
// ties. Blank labels are ignored. No labels yields Unknown.
func Vote(labels []string) string {
	counts := make(map[string]int, len(labels))
	order := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}
	best, bestCount := Unknown, 0
	for _, l := range order {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}

// Static always reports the same label. Used on kiosks without a camera and in tests.
type Static struct {
	Label string
}

func (s Static) Identify(context.Context) string {
	if strings.TrimSpace(s.Label) == "" {
		return Unknown
	}
	return s.Label
}

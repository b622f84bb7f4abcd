package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/ent0n29/responder/internal/reliability"
)

// DefaultTolerance is the maximum face distance accepted as a match.
const DefaultTolerance = 0.6

// CommandCamera runs a command that writes one encoded frame to stdout.
type CommandCamera struct {
	Command string
}

func (c CommandCamera) Frame(ctx context.Context) ([]byte, error) {
	argv := strings.Fields(c.Command)
	if len(argv) == 0 {
		return nil, errors.New("camera command is empty")
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("camera command failed: %w (%s)", err, strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, errors.New("camera command produced no frame")
	}
	return out, nil
}

// HTTPMatcher posts each frame to a face-matching service that compares it
// against the reference images of known patients.
type HTTPMatcher struct {
	URL       string
	Tolerance float64
	Client    *http.Client
}

type matchResponse struct {
	Faces []struct {
		Label    string  `json:"label"`
		Distance float64 `json:"distance"`
	} `json:"faces"`
}

func NewHTTPMatcher(url string) *HTTPMatcher {
	return &HTTPMatcher{
		URL:       url,
		Tolerance: DefaultTolerance,
		Client:    &http.Client{Timeout: 3 * time.Second},
	}
}

func (m *HTTPMatcher) Match(ctx context.Context, frame []byte) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := m.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face match request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("face match status %d (%s): %s", resp.StatusCode, reliability.ClassifyHTTPStatus(resp.StatusCode), strings.TrimSpace(string(body)))
	}

	var payload matchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode face match: %w", err)
	}
	tolerance := m.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	labels := make([]string, 0, len(payload.Faces))
	for _, f := range payload.Faces {
		if f.Label != "" && f.Distance <= tolerance {
			labels = append(labels, f.Label)
		}
	}
	return labels, nil
}

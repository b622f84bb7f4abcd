package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// CommandRecorder records through an ALSA arecord compatible binary.
type CommandRecorder struct {
	Command    string
	SampleRate int
}

func (r CommandRecorder) Record(ctx context.Context, d time.Duration, path string) error {
	bin := strings.TrimSpace(r.Command)
	if bin == "" {
		bin = "arecord"
	}
	rate := r.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	args := []string{
		"-q",
		"-f", "S16_LE",
		"-c", "1",
		"-r", strconv.Itoa(rate),
		"-d", strconv.Itoa(seconds),
		path,
	}
	return run(ctx, bin, args...)
}

// CommandPlayer plays WAV files through an aplay compatible binary.
type CommandPlayer struct {
	Command string
}

func (p CommandPlayer) Play(ctx context.Context, path string) error {
	bin := strings.TrimSpace(p.Command)
	if bin == "" {
		bin = "aplay"
	}
	return run(ctx, bin, "-q", path)
}

func run(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 2<<10 {
			detail = strings.TrimSpace(detail[len(detail)-(2<<10):])
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && detail != "" {
			return fmt.Errorf("%s failed: %s", bin, detail)
		}
		return fmt.Errorf("%s failed: %w", bin, err)
	}
	return nil
}

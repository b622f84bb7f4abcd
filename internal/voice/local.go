package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type WhisperCPPConfig struct {
	CLI       string
	ModelPath string
	Language  string
	Threads   int
	// AutoDownload fetches a missing ggml model from the whisper.cpp mirror.
	AutoDownload bool
}

// WhisperCPP transcribes recordings with the whisper.cpp CLI.
type WhisperCPP struct {
	cliPath   string
	modelPath string
	language  string
	threads   int
}

func NewWhisperCPP(cfg WhisperCPPConfig) (*WhisperCPP, error) {
	cli := strings.TrimSpace(cfg.CLI)
	if cli == "" {
		cli = "whisper-cli"
	}
	cliPath, err := exec.LookPath(cli)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp CLI not found (%s)", cli)
	}
	modelPath := strings.TrimSpace(cfg.ModelPath)
	if modelPath == "" {
		return nil, fmt.Errorf("LOCAL_WHISPER_MODEL_PATH is required")
	}
	if !filepath.IsAbs(modelPath) {
		if wd, err := os.Getwd(); err == nil {
			modelPath = filepath.Join(wd, modelPath)
		}
	}
	if _, err := os.Stat(modelPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || !cfg.AutoDownload {
			return nil, fmt.Errorf("whisper.cpp model not found: %s", modelPath)
		}
		if dlErr := downloadWhisperModel(modelPath); dlErr != nil {
			return nil, fmt.Errorf("whisper.cpp model not found: %s (auto-download failed: %v)", modelPath, dlErr)
		}
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "en"
	}
	if cfg.Threads < 0 {
		return nil, fmt.Errorf("LOCAL_WHISPER_THREADS must be >= 0")
	}
	return &WhisperCPP{
		cliPath:   cliPath,
		modelPath: modelPath,
		language:  language,
		threads:   whisperThreads(cfg.Threads),
	}, nil
}

// whisperThreads clamps the auto-picked thread count to 2..8.
func whisperThreads(requested int) int {
	if requested > 0 {
		return requested
	}
	threads := runtime.NumCPU()
	if threads > 8 {
		threads = 8
	}
	if threads < 2 {
		threads = 2
	}
	return threads
}

func (w *WhisperCPP) Name() string { return "whisper_cpp" }

func (w *WhisperCPP) Transcribe(ctx context.Context, wavPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "responder-whisper-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)
	outPrefix := filepath.Join(tmpDir, "out")

	args := []string{
		"-m", w.modelPath,
		"-f", wavPath,
		"-l", w.language,
		"-otxt",
		"-of", outPrefix,
		"-nt",
		"-t", strconv.Itoa(w.threads),
	}
	cmd := exec.CommandContext(ctx, w.cliPath, args...)
	cmd.Stdout = io.Discard
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		detail := strings.TrimSpace(stderr.String())
		// whisper.cpp is chatty; keep the tail.
		if len(detail) > 8<<10 {
			detail = strings.TrimSpace(detail[len(detail)-(8<<10):])
		}
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("whisper.cpp failed: %s", detail)
	}

	b, err := os.ReadFile(outPrefix + ".txt")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func downloadWhisperModel(modelPath string) error {
	filename := filepath.Base(modelPath)
	if !strings.HasPrefix(filename, "ggml-") || !strings.HasSuffix(filename, ".bin") {
		return fmt.Errorf("unsupported model filename %q; expected whisper.cpp ggml model", filename)
	}
	if err := os.MkdirAll(filepath.Dir(modelPath), 0o755); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()
	url := "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/" + filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("download failed: HTTP %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	tmpPath := modelPath + ".download"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(f, resp.Body)
	if err := errors.Join(copyErr, f.Close()); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if n <= 0 {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("downloaded empty model payload")
	}
	if err := os.Rename(tmpPath, modelPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

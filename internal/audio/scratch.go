package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FinalName is the scratch file used for the farewell utterance.
const FinalName = "final_response.wav"

// Handle points at a synthesized utterance on disk.
type Handle struct {
	Path       string
	SampleRate int
}

// Scratch names and cleans transient audio files in one directory.
type Scratch struct {
	Dir string
	now func() time.Time
}

// NewScratch creates dir if needed.
func NewScratch(dir string) (*Scratch, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Scratch{Dir: dir, now: time.Now}, nil
}

// ResponsePath returns response_<unix>.wav for the current second.
func (s *Scratch) ResponsePath() string {
	return filepath.Join(s.Dir, fmt.Sprintf("response_%d.wav", s.now().Unix()))
}

// FinalPath returns the farewell scratch path.
func (s *Scratch) FinalPath() string {
	return filepath.Join(s.Dir, FinalName)
}

// Remove deletes path, treating a missing file as success.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

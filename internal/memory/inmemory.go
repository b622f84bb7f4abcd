package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps audit transcripts in process for kiosks without a database.
type InMemoryStore struct {
	mu    sync.RWMutex
	lines map[string][]TranscriptLine
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{lines: make(map[string][]TranscriptLine)}
}

func (s *InMemoryStore) SaveLine(_ context.Context, line TranscriptLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if line.ID == "" {
		line.ID = uuid.NewString()
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now().UTC()
	}
	s.lines[line.SessionID] = append(s.lines[line.SessionID], line)
	return nil
}

func (s *InMemoryStore) Transcript(_ context.Context, sessionID string) ([]TranscriptLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.lines[sessionID])
	slices.SortStableFunc(out, func(a, b TranscriptLine) int { return a.Seq - b.Seq })
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ent0n29/responder/internal/responder"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrBusy means a patient session is already running on this kiosk.
	ErrBusy = errors.New("a session is already in progress")
)

type entry struct {
	snapshot  responder.Session
	updatedAt time.Time
}

// Manager keeps read-only snapshots of kiosk sessions for the API and
// enforces one active session per process.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	currentID string
	retention time.Duration
	onExpire  func(responder.Session)
}

// NewManager keeps finished sessions for retention before the janitor drops them.
func NewManager(retention time.Duration) *Manager {
	if retention <= 0 {
		retention = 30 * time.Minute
	}
	return &Manager{
		sessions:  make(map[string]*entry),
		retention: retention,
	}
}

func (m *Manager) SetExpireHook(hook func(responder.Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Begin registers s as the active session. It fails with ErrBusy while
// another session has not finished.
func (m *Manager) Begin(s responder.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[m.currentID]; ok && !cur.snapshot.Done() {
		return ErrBusy
	}
	m.sessions[s.ID] = &entry{snapshot: s, updatedAt: time.Now().UTC()}
	m.currentID = s.ID
	return nil
}

// Update replaces the stored snapshot of a registered session. It never marks
// the session finished; only End frees the kiosk.
func (m *Manager) Update(s responder.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if s.Done() {
		s.State = e.snapshot.State
	}
	e.snapshot = s
	e.updatedAt = time.Now().UTC()
	return nil
}

// End stores the final snapshot and frees the kiosk for the next patient.
// The session stays readable until the janitor expires it.
func (m *Manager) End(s responder.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[s.ID]
	if !ok {
		return ErrNotFound
	}
	if s.State != responder.StateFinalized {
		s.State = responder.StateFinalized
	}
	e.snapshot = s
	e.updatedAt = time.Now().UTC()
	return nil
}

func (m *Manager) Get(sessionID string) (responder.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[sessionID]
	if !ok {
		return responder.Session{}, ErrNotFound
	}
	return e.snapshot.Snapshot(), nil
}

// Current returns the most recently started session, finished or not.
func (m *Manager) Current() (responder.Session, error) {
	m.mu.RLock()
	id := m.currentID
	m.mu.RUnlock()
	if id == "" {
		return responder.Session{}, ErrNotFound
	}
	return m.Get(id)
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.sessions {
		if !e.snapshot.Done() {
			count++
		}
	}
	return count
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireFinished(time.Now().UTC())
			}
		}
	}()
}

func (m *Manager) expireFinished(now time.Time) {
	var expired []responder.Session

	m.mu.Lock()
	for id, e := range m.sessions {
		if !e.snapshot.Done() || now.Sub(e.updatedAt) < m.retention {
			continue
		}
		expired = append(expired, e.snapshot)
		delete(m.sessions, id)
		if id == m.currentID {
			m.currentID = ""
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

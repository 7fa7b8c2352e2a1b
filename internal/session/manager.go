package session

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inkmath/equation-solver/internal/models"
)

// ErrNotFound is returned for unknown session ids
var ErrNotFound = errors.New("session not found")

// Manager keeps the live sessions of a server process. Sessions idle for
// longer than the configured TTL are dropped, and when the cap is reached
// the least recently used session makes room for the new one.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	max      int
	idle     time.Duration
	now      func() time.Time
}

type entry struct {
	session *Session
	used    time.Time
}

// NewManager creates an empty manager bounded by cfg
func NewManager(cfg models.SessionsConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		max:      cfg.MaxSessions,
		idle:     time.Duration(cfg.IdleMinutes) * time.Minute,
		now:      time.Now,
	}
}

// Create registers a new session over surface
func (m *Manager) Create(surface Surface, pipeline *Pipeline) *Session {
	s := New(uuid.New().String(), surface, pipeline)
	m.add(s)
	s.log.Info("session created")
	return s
}

// GetOrCreate returns the session registered under id, creating it with
// create when there is none.
func (m *Manager) GetOrCreate(id string, create func(id string) *Session) *Session {
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.used = m.now()
		m.mu.Unlock()
		return e.session
	}
	m.mu.Unlock()

	s := create(id)
	m.add(s)
	return s
}

func (m *Manager) add(s *Session) {
	m.mu.Lock()
	evicted := m.evictLocked()
	m.sessions[s.ID] = &entry{session: s, used: m.now()}
	m.mu.Unlock()

	for _, old := range evicted {
		old.log.Info("session evicted")
		old.Clear()
	}
}

// evictLocked drops idle sessions, then the least recently used ones until
// one more fits under the cap.
func (m *Manager) evictLocked() []*Session {
	var out []*Session
	now := m.now()
	if m.idle > 0 {
		for id, e := range m.sessions {
			if now.Sub(e.used) > m.idle && !e.session.Running() {
				out = append(out, e.session)
				delete(m.sessions, id)
			}
		}
	}
	for m.max > 0 && len(m.sessions) >= m.max {
		var oldest string
		for id, e := range m.sessions {
			if oldest == "" || e.used.Before(m.sessions[oldest].used) {
				oldest = id
			}
		}
		out = append(out, m.sessions[oldest].session)
		delete(m.sessions, oldest)
	}
	return out
}

// Get looks a session up by id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.used = m.now()
	return e.session, nil
}

// Delete clears and forgets a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.session.Clear()
	return nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SolveImage runs a single attempt over an uploaded image without
// registering a session
func SolveImage(ctx context.Context, pipeline *Pipeline, img image.Image) (State, error) {
	s := New(uuid.New().String(), NewImageSurface(img), pipeline)
	return s.Solve(ctx)
}

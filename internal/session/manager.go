package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session ID is unknown.
var ErrSessionNotFound = errors.New("session not found")

// ManagerConfig holds Manager options.
type ManagerConfig struct {
	// Publisher receives session events. May be nil.
	Publisher Publisher

	// OnStart runs before a new session is registered; an error aborts
	// the start. It is used to persist the session record ahead of any
	// events or frames referencing it.
	OnStart func(s *Session) error
}

// Manager tracks active sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   ManagerConfig
}

// NewManager creates a session manager.
func NewManager(config ManagerConfig) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		config:   config,
	}
}

// Start creates and registers a new session.
func (m *Manager) Start(config Config) (*Session, error) {
	s := newSession(uuid.New().String(), config, m.config.Publisher)

	if m.config.OnStart != nil {
		if err := m.config.OnStart(s); err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	s.emit(EventStarted, s.counter.State(), s.startedAt)
	return s, nil
}

// Get returns the active session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Stop ends the session with id and removes it.
func (m *Manager) Stop(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	s.end(s.config.Counter.Clock.Now())
	return s, nil
}

// StopAll ends every active session.
func (m *Manager) StopAll() {
	for _, s := range m.List() {
		m.Stop(s.id)
	}
}

// List returns the active sessions ordered by start time.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].startedAt.Equal(out[j].startedAt) {
			return out[i].id < out[j].id
		}
		return out[i].startedAt.Before(out[j].startedAt)
	})
	return out
}

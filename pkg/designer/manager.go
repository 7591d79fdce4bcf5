package designer

import (
	"sync"

	"github.com/dukex/docflow/pkg/persistence"
)

// Manager keeps the open sessions of a process by id.
type Manager struct {
	client persistence.Client
	opts   []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions use client and opts.
func NewManager(client persistence.Client, opts ...Option) *Manager {
	return &Manager{
		client:   client,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Client returns the persistence client shared by the sessions.
func (m *Manager) Client() persistence.Client {
	return m.client
}

// Create opens a new session holding an empty workflow.
func (m *Manager) Create(opts ...Option) *Session {
	session := NewSession(m.client, append(append([]Option{}, m.opts...), opts...)...)

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	return session
}

// Get returns the open session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Close closes and forgets the session with the given id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	session.Close()

	return nil
}

// CloseAll closes every open session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

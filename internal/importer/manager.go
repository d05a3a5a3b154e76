package importer

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithApplierFor routes each flow's drafts to its own Applier.
func WithApplierFor(fn func(flowID string) Applier) ManagerOption {
	return func(m *Manager) {
		m.applierFor = fn
	}
}

// Manager owns the sessions of many flows, at most one active session per flow.
type Manager struct {
	deps       Deps
	applierFor func(flowID string) Applier

	mu       sync.Mutex
	sessions map[string]*Session
	active   map[string]string // flow ID -> session ID
}

// NewManager creates a Manager whose sessions share deps.
func NewManager(deps Deps, opts ...ManagerOption) *Manager {
	m := &Manager{
		deps:     deps.withDefaults(),
		sessions: make(map[string]*Session),
		active:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a new idle session for flowID, discarding the flow's previous
// session if it has one.
func (m *Manager) Start(flowID string) *Session {
	deps := m.deps
	if m.applierFor != nil {
		deps.Applier = m.applierFor(flowID)
	}
	session := NewSession("", flowID, deps)

	m.mu.Lock()
	var previous *Session
	if id, ok := m.active[flowID]; ok {
		previous = m.sessions[id]
	}
	m.sessions[session.ID()] = session
	m.active[flowID] = session.ID()
	m.mu.Unlock()

	if previous != nil {
		m.deps.Logger.Info("import.manager.superseded",
			zap.String("flow_id", flowID),
			zap.String("session_id", previous.ID()),
		)
		previous.Discard()
	}
	return session
}

// Get returns the session with id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Active returns the flow's current session.
func (m *Manager) Active(flowID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.active[flowID]
	if !ok {
		return nil, false
	}
	return m.sessions[id], true
}

// Discard discards the session with id. It reports whether the session exists.
func (m *Manager) Discard(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.Discard()
	return true
}

// Prune forgets terminal sessions last updated more than maxAge ago and
// returns how many were removed.
func (m *Manager) Prune(maxAge time.Duration) int {
	cutoff := m.deps.Now().Add(-maxAge)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		snap := s.Snapshot()
		if !snap.State.Terminal() || snap.UpdatedAt.After(cutoff) {
			continue
		}
		stale = append(stale, s)
		delete(m.sessions, id)
		if m.active[s.FlowID()] == id {
			delete(m.active, s.FlowID())
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Discard()
	}
	return len(stale)
}

// Close discards every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Discard()
	}
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

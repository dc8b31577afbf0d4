package proctor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/proctor/internal/detection"
)

// Manager owns the live sessions of the process. A session leaves the
// registry when it is removed, once its retention window passes after
// completion, or when its permission gate stays unanswered past the
// pending TTL.
type Manager struct {
	cfg     detection.Config
	deps    Deps
	retain  time.Duration
	pending time.Duration

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	timers   map[uuid.UUID]*time.Timer
}

// NewManager creates a Manager whose sessions share cfg and deps. Zero
// durations in retention fall back to DefaultConfig.
func NewManager(cfg detection.Config, retention Config, deps Deps) *Manager {
	retention.loadDefaults()
	return &Manager{
		cfg:      cfg,
		deps:     deps.withDefaults(),
		retain:   retention.RetainCompletedDuration(),
		pending:  retention.PendingTTLDuration(),
		sessions: make(map[uuid.UUID]*Session),
		timers:   make(map[uuid.UUID]*time.Timer),
	}
}

// Create registers a new not-started session.
func (m *Manager) Create(opts Options) (*Session, error) {
	s, err := New(opts, m.cfg, m.deps)
	if err != nil {
		return nil, err
	}
	s.onComplete = m.completed

	id := s.ID()
	m.mu.Lock()
	m.sessions[id] = s
	m.timers[id] = time.AfterFunc(m.pending, func() { m.expirePending(id) })
	m.mu.Unlock()

	return s, nil
}

// Get returns the live session with the given id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove drops a session from the registry and closes it.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	t := m.timers[id]
	delete(m.sessions, id)
	delete(m.timers, id)
	m.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	if ok {
		s.Close()
	}
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops sampling for every registered session and cancels pending
// evictions.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Go(s.Close)
	}
	wg.Wait()
}

// Config returns the detection configuration shared by all sessions.
func (m *Manager) Config() detection.Config {
	return m.cfg
}

// completed schedules eviction of a session that produced its report.
func (m *Manager) completed(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return
	}
	if t := m.timers[id]; t != nil {
		t.Stop()
	}
	m.timers[id] = time.AfterFunc(m.retain, func() { m.Remove(id) })
}

func (m *Manager) expirePending(id uuid.UUID) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok || !s.discardPending() {
		return
	}

	m.mu.Lock()
	if m.sessions[id] == s {
		delete(m.sessions, id)
		delete(m.timers, id)
	}
	m.mu.Unlock()
	s.logger.Info("session expired before permission was granted", "ttl", m.pending)
}

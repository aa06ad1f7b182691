// Package session tracks per-client flow controllers.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdf-tools/backend/internal/catalog"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/models"
)

// DefaultMaxSessions limits live sessions to bound memory use.
const DefaultMaxSessions = 100

// SessionKeepAliveWindow protects recently used sessions from eviction.
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
)

// Config configures a Manager.
type Config struct {
	MaxSessions  int
	ProcessDelay time.Duration
	Catalog      *catalog.Catalog
	Logger       *slog.Logger

	// AfterFunc and Now are overridable for tests.
	AfterFunc flow.AfterFunc
	Now       func() time.Time
}

// Manager owns one flow controller per client session.
type Manager struct {
	sessions map[string]*SessionState
	mu       sync.RWMutex

	maxSessions  int
	processDelay time.Duration
	catalog      *catalog.Catalog
	logger       *slog.Logger
	afterFunc    flow.AfterFunc
	now          func() time.Time
}

// SessionState holds a session's controller and bookkeeping.
type SessionState struct {
	ID           string
	Controller   *flow.Controller
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	m := &Manager{
		sessions:     make(map[string]*SessionState),
		maxSessions:  cfg.MaxSessions,
		processDelay: cfg.ProcessDelay,
		catalog:      cfg.Catalog,
		logger:       cfg.Logger,
		afterFunc:    cfg.AfterFunc,
		now:          cfg.Now,
	}
	if m.maxSessions <= 0 {
		m.maxSessions = DefaultMaxSessions
	}
	if m.processDelay <= 0 {
		m.processDelay = flow.DefaultProcessDelay
	}
	if m.catalog == nil {
		m.catalog = catalog.Default()
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Create starts a fresh session, evicting idle sessions if at capacity.
func (m *Manager) Create() (*SessionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxSessions && !m.evictOldestLocked() {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	opts := []flow.Option{
		flow.WithDelay(m.processDelay),
		flow.WithLogger(m.logger.With("session", shortID(id))),
	}
	if m.afterFunc != nil {
		opts = append(opts, flow.WithAfterFunc(m.afterFunc))
	}

	now := m.now()
	state := &SessionState{
		ID:           id,
		Controller:   flow.New(m.catalog, opts...),
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.sessions[id] = state

	m.logger.Info("session created", "session", shortID(id), "active", len(m.sessions))
	return state, nil
}

// Get returns a session without touching it.
func (m *Manager) Get(id string) (*SessionState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.sessions[id]
	return state, ok
}

// Controller returns the session's controller and marks the session as used.
func (m *Manager) Controller(id string) (*flow.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	state.LastAccessed = m.now()
	return state.Controller, nil
}

// Touch updates the LastAccessed timestamp for a session.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = m.now()
	return true
}

// Close discards a session and stops its controller.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	state.Controller.Close()
	m.logger.Info("session closed", "session", shortID(id))
	return nil
}

// CloseAll discards every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	states := m.sessions
	m.sessions = make(map[string]*SessionState)
	m.mu.Unlock()

	for _, state := range states {
		state.Controller.Close()
	}
}

// List returns a summary of all sessions, most recently used first.
func (m *Manager) List() []models.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]models.SessionInfo, 0, len(m.sessions))
	for _, state := range m.sessions {
		list = append(list, models.SessionInfo{
			ID:           state.ID,
			Phase:        state.Controller.Snapshot().Phase,
			CreatedAt:    state.CreatedAt,
			LastAccessed: state.LastAccessed,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].LastAccessed.After(list[j].LastAccessed)
	})
	return list
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdleSessions removes sessions not accessed within maxAge.
// Sessions that are still processing are kept.
func (m *Manager) CleanupIdleSessions(maxAge time.Duration) int {
	m.mu.Lock()
	cutoff := m.now().Add(-maxAge)
	var removed []*SessionState
	for id, state := range m.sessions {
		if !state.LastAccessed.Before(cutoff) {
			continue
		}
		if state.Controller.Snapshot().Processing {
			continue
		}
		delete(m.sessions, id)
		removed = append(removed, state)
	}
	m.mu.Unlock()

	for _, state := range removed {
		state.Controller.Close()
		m.logger.Info("cleaned up idle session", "session", shortID(state.ID),
			"idle", m.now().Sub(state.LastAccessed).Round(time.Second))
	}
	return len(removed)
}

// evictOldestLocked removes the least recently used session that is neither
// processing nor inside the keep-alive window.
func (m *Manager) evictOldestLocked() bool {
	keepAliveCutoff := m.now().Add(-SessionKeepAliveWindow)

	var victim *SessionState
	for _, state := range m.sessions {
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.Controller.Snapshot().Processing {
			continue
		}
		if victim == nil || state.LastAccessed.Before(victim.LastAccessed) {
			victim = state
		}
	}
	if victim == nil {
		return false
	}

	delete(m.sessions, victim.ID)
	victim.Controller.Close()
	m.logger.Info("evicted session to make room", "session", shortID(victim.ID))
	return true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 2 * time.Hour

// Manager holds isolated sessions keyed by id. Sessions live in memory only
// and are evicted after ttl without access.
type Manager struct {
	analyzer analyzer
	cfg      Config
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(a analyzer, cfg Config, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		analyzer: a,
		cfg:      cfg,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating a fresh one under a new id when
// id is unknown or expired. created reports whether a new session was made.
func (m *Manager) Get(id string) (s *Session, created bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked(now)

	if s, ok := m.sessions[id]; ok {
		s.touch(now)
		return s, false
	}

	s = New(uuid.NewString(), m.analyzer, m.cfg)
	s.touch(now)
	m.sessions[s.ID()] = s
	m.logger.Debug("session created", "session_id", s.ID(), "active_sessions", len(m.sessions))
	return s, true
}

// NewEphemeral returns a session that the manager does not track, for
// one-shot API calls.
func (m *Manager) NewEphemeral() *Session {
	return New(uuid.NewString(), m.analyzer, m.cfg)
}

// BackendName identifies the vision backend every session uses.
func (m *Manager) BackendName() string { return m.analyzer.BackendName() }

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) evictLocked(now time.Time) {
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) > m.ttl {
			delete(m.sessions, id)
			m.logger.Debug("session expired", "session_id", id)
		}
	}
}

package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
	"github.com/wricardo/mcp-training/tacticsgrid/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// Manager handles battle session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	persistence SessionPersistence
	battleOpts  []engine.Option
	log         zerolog.Logger
	mu          sync.RWMutex
}

// NewManager creates an in-memory session manager. opts are applied to every
// battle it creates.
func NewManager(log zerolog.Logger, opts ...engine.Option) *Manager {
	return &Manager{
		sessions:   make(map[string]*service.Session),
		battleOpts: opts,
		log:        log.With().Str("component", "session").Logger(),
	}
}

// NewManagerWithPersistence creates a session manager that saves sessions
// through persistence
func NewManagerWithPersistence(persistence SessionPersistence, log zerolog.Logger, opts ...engine.Option) *Manager {
	m := NewManager(log, opts...)
	m.persistence = persistence
	return m
}

// Create builds a battle from config and registers it under id. An empty id
// gets a fresh UUID.
func (m *Manager) Create(id, configID string, config *engine.BattleConfig) (*service.Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else if err := validateID(id); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; exists {
		return nil, ErrSessionAlreadyExists
	}

	battle, err := engine.NewBattle(config, m.battleOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create battle: %w", err)
	}

	sess := service.NewSession(id, configID, battle)
	m.sessions[key] = sess

	if m.persistence != nil {
		if err := m.persistence.Save(sess); err != nil {
			// The session stays usable in memory
			m.log.Warn().Err(err).Str("session", id).Msg("failed to persist new session")
		}
	}

	return sess, nil
}

// Get retrieves a session by ID (case-insensitive), falling back to
// persistence when it is not in memory
func (m *Manager) Get(id string) (*service.Session, error) {
	key := strings.ToLower(id)

	m.mu.RLock()
	sess, exists := m.sessions[key]
	m.mu.RUnlock()
	if exists {
		return sess, nil
	}

	if m.persistence == nil || validateID(id) != nil || !m.persistence.Exists(id) {
		return nil, ErrSessionNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have loaded it meanwhile
	if sess, exists := m.sessions[key]; exists {
		return sess, nil
	}
	m.sessions[key] = loaded
	return loaded, nil
}

// List returns all in-memory sessions, oldest first
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Delete removes a session from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	_, inMemory := m.sessions[key]
	delete(m.sessions, key)

	if m.persistence != nil && validateID(id) == nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted session: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteFromMemory removes a session from memory only
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.sessions[key]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	return nil
}

// UpdateLastAccessed touches the session's access time. The caller must not
// hold the session lock.
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	sess.Lock()
	sess.LastAccessedAt = time.Now()
	sess.Unlock()
	return nil
}

// Save persists one session. The caller must hold the session lock.
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	sess, exists := m.sessions[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrSessionNotFound
	}

	return m.persistence.Save(sess)
}

// CleanupExpiredSessions drops sessions from memory that have not been
// accessed within maxAge. Persisted copies are kept.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	// Session locks are never taken while holding m.mu
	var expired []string
	for _, sess := range m.List() {
		sess.Lock()
		if sess.LastAccessedAt.Before(cutoff) {
			expired = append(expired, strings.ToLower(sess.ID))
		}
		sess.Unlock()
	}

	m.mu.Lock()
	removed := 0
	for _, key := range expired {
		if _, ok := m.sessions[key]; ok {
			delete(m.sessions, key)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.log.Info().Int("removed", removed).Dur("max_age", maxAge).Msg("expired sessions cleaned up")
	}
	return removed
}

// Count returns the number of in-memory sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPersistedSessions loads every persisted session into memory
func (m *Manager) LoadPersistedSessions() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		key := strings.ToLower(id)
		if _, exists := m.sessions[key]; exists {
			continue
		}

		sess, err := m.persistence.Load(id)
		if err != nil {
			m.log.Warn().Err(err).Str("session", id).Msg("failed to load persisted session")
			continue
		}
		m.sessions[key] = sess
		loaded++
	}

	if loaded > 0 {
		m.log.Info().Int("count", loaded).Msg("loaded persisted sessions")
	}
	return nil
}

// SaveAllSessions persists every in-memory session
func (m *Manager) SaveAllSessions() error {
	if m.persistence == nil {
		return nil
	}

	failed := 0
	for _, sess := range m.List() {
		sess.Lock()
		err := m.persistence.Save(sess)
		sess.Unlock()
		if err != nil {
			m.log.Warn().Err(err).Str("session", sess.ID).Msg("failed to save session")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to save %d sessions", failed)
	}
	return nil
}

// validateID rejects ids that cannot be used as file names
func validateID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

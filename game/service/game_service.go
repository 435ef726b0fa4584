package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrConfigNotFound  = errors.New("configuration not found")
)

// DefaultConfigID names the default scenario
const DefaultConfigID = "default"

// BattleService defines all battle-related operations
type BattleService interface {
	// Session Management
	CreateSession(ctx context.Context, configID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Player intents
	SelectUnit(ctx context.Context, sessionID string, unit engine.UnitID) (*ActionResult, error)
	MoveUnit(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error)
	EndAction(ctx context.Context, sessionID string) (*ActionResult, error)
	StartRound(ctx context.Context, sessionID string) (*ActionResult, error)

	// Queries
	GetState(ctx context.Context, sessionID string) (*engine.State, error)
	Reachable(ctx context.Context, sessionID string) (*ReachableResult, error)
	Path(ctx context.Context, sessionID string, target engine.Position) (*PathResult, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configID string) (*engine.BattleConfig, error)
	SaveConfig(ctx context.Context, configID string, config *engine.BattleConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.BattleConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles scenario loading
type ConfigManager interface {
	LoadConfig(id string) (*engine.BattleConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.BattleConfig
	SaveConfig(id string, config *engine.BattleConfig) error
}

// Session is one running battle. Every access to Battle must happen between
// Lock and Unlock.
type Session struct {
	ID             string
	ConfigID       string
	Battle         *engine.Battle
	Config         *engine.BattleConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu     sync.Mutex
	events []engine.Event
}

// NewSession wraps battle and starts recording the events it emits
func NewSession(id, configID string, battle *engine.Battle) *Session {
	now := time.Now()
	s := &Session{
		ID:             id,
		ConfigID:       configID,
		Battle:         battle,
		Config:         battle.Config(),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	battle.Subscribe(s.record)
	return s
}

// Lock serializes access to the session's battle
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) record(ev engine.Event) {
	s.events = append(s.events, ev)
}

// DrainEvents returns the events recorded since the last drain. The caller
// must hold the session lock.
func (s *Session) DrainEvents() []engine.Event {
	events := s.events
	s.events = nil
	return events
}

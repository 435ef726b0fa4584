package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
)

// battleServiceImpl implements the BattleService interface
type battleServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	log      zerolog.Logger
}

// NewBattleService creates a new battle service instance
func NewBattleService(sessions SessionManager, configs ConfigManager, log zerolog.Logger) BattleService {
	return &battleServiceImpl{
		sessions: sessions,
		configs:  configs,
		log:      log.With().Str("component", "service").Logger(),
	}
}

// CreateSession creates a session for the scenario and starts its first round
func (s *battleServiceImpl) CreateSession(ctx context.Context, configID string) (*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var config *engine.BattleConfig
	if configID == "" || configID == DefaultConfigID {
		configID = DefaultConfigID
		config = s.configs.GetDefault()
	} else {
		var err error
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, fmt.Errorf("%w (available: %v)", err, s.configIDs())
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configID, err)
		}
	}

	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sess.Lock()
	defer sess.Unlock()

	if err := sess.Battle.StartNewRound(); err != nil {
		_ = s.sessions.Delete(sess.ID)
		return nil, fmt.Errorf("failed to start battle: %w", err)
	}
	sess.DrainEvents()

	if err := s.sessions.Save(sess.ID); err != nil {
		s.log.Warn().Err(err).Str("session", sess.ID).Msg("failed to persist session")
	}

	s.log.Info().Str("session", sess.ID).Str("config", configID).Msg("session created")
	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *battleServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *battleServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.info(sess))
		sess.Unlock()
	}
	return result, nil
}

// DeleteSession removes a session
func (s *battleServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// SelectUnit selects a unit; engine.NoUnit clears the selection
func (s *battleServiceImpl) SelectUnit(ctx context.Context, sessionID string, unit engine.UnitID) (*ActionResult, error) {
	return s.act(ctx, sessionID, "select", func(b *engine.Battle) (string, error) {
		if err := b.SelectUnit(unit); err != nil {
			return "", err
		}
		if unit == engine.NoUnit {
			return "Selection cleared", nil
		}
		tiles, _ := b.ReachableTiles()
		return fmt.Sprintf("Unit %d selected, %d reachable tiles", unit, len(tiles)), nil
	})
}

// MoveUnit moves the selected unit to target
func (s *battleServiceImpl) MoveUnit(ctx context.Context, sessionID string, target engine.Position) (*ActionResult, error) {
	return s.act(ctx, sessionID, "move", func(b *engine.Battle) (string, error) {
		sel, _ := b.SelectedUnit()
		if err := b.MoveUnit(target); err != nil {
			return "", err
		}
		moved, _ := b.Unit(sel.ID)
		return fmt.Sprintf("Unit %d moved to %s, %d movement left", moved.ID, target, moved.RemainingMoveRange), nil
	})
}

// EndAction ends the current Ally action; Enemy turns resolve before it returns
func (s *battleServiceImpl) EndAction(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(ctx, sessionID, "end_action", func(b *engine.Battle) (string, error) {
		if err := b.EndCurrentAction(); err != nil {
			return "", err
		}
		return turnSummary(b), nil
	})
}

// StartRound (re)starts the current round
func (s *battleServiceImpl) StartRound(ctx context.Context, sessionID string) (*ActionResult, error) {
	return s.act(ctx, sessionID, "new_round", func(b *engine.Battle) (string, error) {
		if err := b.StartNewRound(); err != nil {
			return "", err
		}
		return turnSummary(b), nil
	})
}

// GetState returns the battle view for a session
func (s *battleServiceImpl) GetState(ctx context.Context, sessionID string) (*engine.State, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()
	return sess.Battle.State(), nil
}

// Reachable lists the movement area of the selected unit
func (s *battleServiceImpl) Reachable(ctx context.Context, sessionID string) (*ReachableResult, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	tiles, err := sess.Battle.ReachableTiles()
	if err != nil {
		return nil, err
	}
	sel, _ := sess.Battle.SelectedUnit()
	return &ReachableResult{
		Unit:      sel.ID,
		From:      sel.Position,
		Remaining: sel.RemainingMoveRange,
		Tiles:     tiles,
		Count:     len(tiles),
	}, nil
}

// Path previews the selected unit's shortest path to target
func (s *battleServiceImpl) Path(ctx context.Context, sessionID string, target engine.Position) (*PathResult, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	path, err := sess.Battle.Path(target)
	if err != nil {
		return nil, err
	}
	sel, _ := sess.Battle.SelectedUnit()
	result := &PathResult{
		Unit:  sel.ID,
		From:  sel.Position,
		To:    target,
		Found: path != nil,
		Path:  path,
	}
	if result.Found {
		result.Cost = len(path) - 1
		result.WithinBudget = result.Cost <= sel.RemainingMoveRange
	}
	return result, nil
}

// ListConfigs returns all available scenarios
func (s *battleServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a scenario by id
func (s *battleServiceImpl) LoadConfig(ctx context.Context, configID string) (*engine.BattleConfig, error) {
	if configID == DefaultConfigID {
		return s.configs.GetDefault(), nil
	}
	return s.configs.LoadConfig(configID)
}

// SaveConfig saves a scenario to disk
func (s *battleServiceImpl) SaveConfig(ctx context.Context, configID string, config *engine.BattleConfig) error {
	return s.configs.SaveConfig(configID, config)
}

// act runs one intent under the session lock and captures the events it
// produced. Rejections are reported in the result, not as errors.
func (s *battleServiceImpl) act(ctx context.Context, sessionID, action string, intent func(*engine.Battle) (string, error)) (*ActionResult, error) {
	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	sess.DrainEvents()
	message, err := intent(sess.Battle)
	events := sess.DrainEvents()

	if err != nil && !engine.IsRejection(err) {
		s.log.Error().Err(err).Str("session", sessionID).Str("action", action).Msg("action failed")
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	result := &ActionResult{
		Action:  action,
		Success: err == nil,
		Message: message,
		State:   sess.Battle.State(),
		Events:  annotate(events),
	}
	if err != nil {
		result.Code = engine.ErrorCode(err)
		result.Message = err.Error()
		s.log.Debug().Err(err).Str("session", sessionID).Str("action", action).Msg("intent rejected")
		return result, nil
	}

	if err := s.sessions.Save(sessionID); err != nil {
		s.log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist session")
	}
	return result, nil
}

func (s *battleServiceImpl) lookup(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// info builds the session view; the caller holds the session lock
func (s *battleServiceImpl) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigID:       sess.ConfigID,
		ConfigName:     sess.Config.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          sess.Battle.State(),
	}
}

func (s *battleServiceImpl) configIDs() []string {
	configs, err := s.configs.ListConfigs()
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(configs))
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	return ids
}

func turnSummary(b *engine.Battle) string {
	if !b.Started() {
		return fmt.Sprintf("Round %d is waiting to be started", b.RoundNumber())
	}
	return fmt.Sprintf("Round %d, %s turn, %d allies left to act",
		b.RoundNumber(), b.ActiveFaction(), len(b.Pending(engine.Ally)))
}

func annotate(events []engine.Event) []BattleEvent {
	now := time.Now()
	out := make([]BattleEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, BattleEvent{
			Type:      ev.Type,
			Round:     ev.Round,
			Faction:   ev.Faction,
			Unit:      ev.Unit,
			From:      ev.From,
			To:        ev.To,
			Message:   describeEvent(ev),
			Timestamp: now,
		})
	}
	return out
}

func describeEvent(ev engine.Event) string {
	switch ev.Type {
	case engine.EventUnitSelected:
		return fmt.Sprintf("Unit %d selected", ev.Unit)
	case engine.EventUnitDeselected:
		return fmt.Sprintf("Unit %d deselected", ev.Unit)
	case engine.EventUnitMoved:
		return fmt.Sprintf("Unit %d moved from %s to %s", ev.Unit, ev.From, ev.To)
	case engine.EventTurnStarted:
		if ev.Unit != engine.NoUnit {
			return fmt.Sprintf("%s turn started for unit %d", ev.Faction, ev.Unit)
		}
		return fmt.Sprintf("%s turn started", ev.Faction)
	case engine.EventTurnEnded:
		return fmt.Sprintf("Unit %d (%s) finished its action", ev.Unit, ev.Faction)
	case engine.EventRoundStarted:
		return fmt.Sprintf("Round %d started", ev.Round)
	case engine.EventRoundEnded:
		return fmt.Sprintf("Round %d ended", ev.Round)
	}
	return string(ev.Type)
}

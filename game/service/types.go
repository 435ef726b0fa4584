package service

import (
	"time"

	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
)

// SessionInfo provides information about a battle session
type SessionInfo struct {
	ID             string        `json:"id"`
	ConfigID       string        `json:"config_id"`
	ConfigName     string        `json:"config_name"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	State          *engine.State `json:"state"`
}

// ActionResult contains the outcome of a player intent. A rejected intent is
// reported with Success false and a Code; the battle is unchanged.
type ActionResult struct {
	Action  string        `json:"action"`
	Success bool          `json:"success"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message"`
	State   *engine.State `json:"state"`
	Events  []BattleEvent `json:"events"`
}

// BattleEvent is an engine notification annotated for clients
type BattleEvent struct {
	Type      engine.EventType `json:"type"`
	Round     int              `json:"round"`
	Faction   engine.Faction   `json:"faction,omitempty"`
	Unit      engine.UnitID    `json:"unit,omitempty"`
	From      *engine.Position `json:"from,omitempty"`
	To        *engine.Position `json:"to,omitempty"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
}

// ReachableResult lists the tiles the selected unit can move to
type ReachableResult struct {
	Unit      engine.UnitID     `json:"unit"`
	From      engine.Position   `json:"from"`
	Remaining int               `json:"remaining_move_range"`
	Tiles     []engine.Position `json:"tiles"`
	Count     int               `json:"count"`
}

// PathResult previews the selected unit's shortest path to a tile
type PathResult struct {
	Unit         engine.UnitID     `json:"unit"`
	From         engine.Position   `json:"from"`
	To           engine.Position   `json:"to"`
	Found        bool              `json:"found"`
	Path         []engine.Position `json:"path,omitempty"`
	Cost         int               `json:"cost"`
	WithinBudget bool              `json:"within_budget"`
}

// ConfigInfo provides information about a scenario
type ConfigInfo struct {
	Filename    string `json:"filename,omitempty"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Allies      int    `json:"allies"`
	Enemies     int    `json:"enemies"`
}

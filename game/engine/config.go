package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// BattleConfig describes a battle scenario: board size, walls and the
// starting roster. It is loaded from JSON or YAML.
type BattleConfig struct {
	Name             string          `json:"name" yaml:"name"`
	Description      string          `json:"description" yaml:"description"`
	Width            int             `json:"width" yaml:"width"`
	Height           int             `json:"height" yaml:"height"`
	DefaultMoveRange int             `json:"default_move_range,omitempty" yaml:"default_move_range,omitempty"`
	Seed             uint64          `json:"seed,omitempty" yaml:"seed,omitempty"`
	Layout           []string        `json:"layout,omitempty" yaml:"layout,omitempty"`
	Walls            []Position      `json:"walls,omitempty" yaml:"walls,omitempty"`
	Units            []UnitPlacement `json:"units,omitempty" yaml:"units,omitempty"`
}

// UnitPlacement is one entry of the starting roster. A nil MoveRange uses
// the scenario's default; an explicit 0 places a unit that cannot move.
type UnitPlacement struct {
	Faction   Faction `json:"faction" yaml:"faction"`
	X         int     `json:"x" yaml:"x"`
	Y         int     `json:"y" yaml:"y"`
	MoveRange *int    `json:"move_range,omitempty" yaml:"move_range,omitempty"`
}

// RangeOf returns a move range for a UnitPlacement
func RangeOf(n int) *int {
	return &n
}

// Range returns the placement's move range, 0 when unset
func (p UnitPlacement) Range() int {
	if p.MoveRange == nil {
		return 0
	}
	return *p.MoveRange
}

// Layout characters
const (
	LayoutFloor = '.'
	LayoutWall  = '#'
	LayoutAlly  = 'A'
	LayoutEnemy = 'E'
)

// DefaultBattleConfig returns the stock 10x10 skirmish with three units per side
func DefaultBattleConfig() *BattleConfig {
	return &BattleConfig{
		Name:             "default",
		Description:      "Open 10x10 field, three allies bottom-left against three enemies top-right",
		Width:            10,
		Height:           10,
		DefaultMoveRange: DefaultMoveRange,
		Units: []UnitPlacement{
			{Faction: Ally, X: 1, Y: 1},
			{Faction: Ally, X: 1, Y: 2},
			{Faction: Ally, X: 2, Y: 1},
			{Faction: Enemy, X: 8, Y: 8},
			{Faction: Enemy, X: 8, Y: 9},
			{Faction: Enemy, X: 9, Y: 8},
		},
	}
}

// ValidateBattleConfig checks a configuration for correctness and playability
func ValidateBattleConfig(config *BattleConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config cannot be nil", ErrInvalidConfig)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}

	if config.Width < MinBoardSize || config.Width > MaxBoardSize {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidConfig, MinBoardSize, MaxBoardSize, config.Width)
	}
	if config.Height < MinBoardSize || config.Height > MaxBoardSize {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidConfig, MinBoardSize, MaxBoardSize, config.Height)
	}
	if config.DefaultMoveRange < 0 || config.DefaultMoveRange > MaxMoveRange {
		return fmt.Errorf("%w: default_move_range must be between 0 and %d, got %d", ErrInvalidConfig, MaxMoveRange, config.DefaultMoveRange)
	}

	if len(config.Layout) > 0 {
		if len(config.Layout) != config.Height {
			return fmt.Errorf("%w: layout must have %d rows to match height, got %d", ErrInvalidConfig, config.Height, len(config.Layout))
		}
		for i, row := range config.Layout {
			if len(row) != config.Width {
				return fmt.Errorf("%w: layout row %d must have %d characters to match width, got %d",
					ErrInvalidConfig, i, config.Width, len(row))
			}
			for j, char := range row {
				switch char {
				case LayoutFloor, LayoutWall, LayoutAlly, LayoutEnemy:
				default:
					return fmt.Errorf("%w: invalid layout character '%c' at row %d, col %d", ErrInvalidConfig, char, i, j)
				}
			}
		}
	}

	walls := make(map[Position]bool)
	for _, w := range config.wallPositions() {
		if w.X < 0 || w.X >= config.Width || w.Y < 0 || w.Y >= config.Height {
			return fmt.Errorf("%w: wall %s is outside the %dx%d board", ErrInvalidConfig, w, config.Width, config.Height)
		}
		walls[w] = true
	}

	placements := config.placements()
	if len(placements) == 0 {
		return fmt.Errorf("%w: at least one unit is required", ErrInvalidConfig)
	}

	occupied := make(map[Position]int)
	for i, p := range placements {
		pos := Position{X: p.X, Y: p.Y}
		if !p.Faction.Valid() {
			return fmt.Errorf("%w: unit %d has unknown faction %q", ErrInvalidConfig, i+1, p.Faction)
		}
		if p.X < 0 || p.X >= config.Width || p.Y < 0 || p.Y >= config.Height {
			return fmt.Errorf("%w: unit %d at %s is outside the %dx%d board", ErrInvalidConfig, i+1, pos, config.Width, config.Height)
		}
		if walls[pos] {
			return fmt.Errorf("%w: unit %d is placed on a wall at %s", ErrInvalidConfig, i+1, pos)
		}
		if other, ok := occupied[pos]; ok {
			return fmt.Errorf("%w: units %d and %d share %s", ErrInvalidConfig, other, i+1, pos)
		}
		if p.Range() < 0 || p.Range() > MaxMoveRange {
			return fmt.Errorf("%w: unit %d move_range must be between 0 and %d, got %d", ErrInvalidConfig, i+1, MaxMoveRange, p.Range())
		}
		occupied[pos] = i + 1
	}

	return nil
}

// moveRange returns the scenario default, falling back to DefaultMoveRange
func (c *BattleConfig) moveRange() int {
	if c.DefaultMoveRange > 0 {
		return c.DefaultMoveRange
	}
	return DefaultMoveRange
}

// wallPositions merges layout walls with the explicit wall list
func (c *BattleConfig) wallPositions() []Position {
	var walls []Position
	for y, row := range c.Layout {
		for x, char := range row {
			if char == LayoutWall {
				walls = append(walls, Position{X: x, Y: y})
			}
		}
	}
	return append(walls, c.Walls...)
}

// placements returns layout units (row by row) followed by explicit units,
// with default move ranges filled in.
func (c *BattleConfig) placements() []UnitPlacement {
	var out []UnitPlacement
	for y, row := range c.Layout {
		for x, char := range row {
			switch char {
			case LayoutAlly:
				out = append(out, UnitPlacement{Faction: Ally, X: x, Y: y})
			case LayoutEnemy:
				out = append(out, UnitPlacement{Faction: Enemy, X: x, Y: y})
			}
		}
	}
	out = append(out, c.Units...)

	for i := range out {
		if out[i].MoveRange == nil {
			out[i].MoveRange = RangeOf(c.moveRange())
		}
	}
	return out
}

// UnitCount returns the number of units per faction in the starting roster
func (c *BattleConfig) UnitCount() (allies, enemies int) {
	for _, p := range c.placements() {
		if p.Faction == Ally {
			allies++
		} else {
			enemies++
		}
	}
	return allies, enemies
}

// ParseBattleConfig decodes a configuration, choosing YAML or JSON by the
// file extension in name, and validates it.
func ParseBattleConfig(name string, data []byte) (*BattleConfig, error) {
	var config BattleConfig
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config '%s': %w", name, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config '%s': %w", name, err)
		}
	}

	if err := ValidateBattleConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadBattleConfig loads and validates a configuration file
func LoadBattleConfig(path string) (*BattleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBattleConfig(path, data)
}

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBattleConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *BattleConfig)
		wantErr bool
	}{
		{"default is valid", func(c *BattleConfig) {}, false},
		{"missing name", func(c *BattleConfig) { c.Name = "" }, true},
		{"too narrow", func(c *BattleConfig) { c.Width = 1 }, true},
		{"too tall", func(c *BattleConfig) { c.Height = MaxBoardSize + 1 }, true},
		{"negative default range", func(c *BattleConfig) { c.DefaultMoveRange = -1 }, true},
		{"no units", func(c *BattleConfig) { c.Units = nil }, true},
		{"unit outside", func(c *BattleConfig) { c.Units[0].X = 10 }, true},
		{"unknown faction", func(c *BattleConfig) { c.Units[0].Faction = "neutral" }, true},
		{"shared tile", func(c *BattleConfig) { c.Units[1] = c.Units[0] }, true},
		{"unit on wall", func(c *BattleConfig) { c.Walls = []Position{Pos(1, 1)} }, true},
		{"wall outside", func(c *BattleConfig) { c.Walls = []Position{Pos(-1, 4)} }, true},
		{"move range too large", func(c *BattleConfig) { c.Units[2].MoveRange = RangeOf(MaxMoveRange + 1) }, true},
		{"layout height mismatch", func(c *BattleConfig) { c.Layout = []string{".........."} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultBattleConfig()
			tt.mutate(config)

			err := ValidateBattleConfig(config)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.ErrorIs(t, ValidateBattleConfig(nil), ErrInvalidConfig)
}

func TestParseBattleConfig_Layout(t *testing.T) {
	data := []byte(`
name: corridor
description: Two squads facing off across a wall with a single gap
width: 5
height: 4
default_move_range: 2
layout:
  - "A...E"
  - "##.##"
  - "....."
  - "A...."
units:
  - faction: enemy
    x: 4
    y: 3
    move_range: 4
`)

	config, err := ParseBattleConfig("corridor.yaml", data)
	require.NoError(t, err)

	assert.Equal(t, "corridor", config.Name)
	allies, enemies := config.UnitCount()
	assert.Equal(t, 2, allies)
	assert.Equal(t, 2, enemies)
	assert.ElementsMatch(t, []Position{Pos(0, 1), Pos(1, 1), Pos(3, 1), Pos(4, 1)}, config.wallPositions())

	b := newTestBattle(t, config)
	units := b.Units()
	require.Len(t, units, 4)
	assert.Equal(t, Pos(0, 0), units[0].Position)
	assert.Equal(t, Pos(4, 0), units[1].Position)
	assert.Equal(t, Pos(0, 3), units[2].Position)
	assert.Equal(t, 2, units[0].MoveRange)
	assert.Equal(t, 4, units[3].MoveRange)

	walkable, err := b.Board().IsWalkable(Pos(1, 1))
	require.NoError(t, err)
	assert.False(t, walkable)
	assert.Equal(t, []string{"A...E", "##.##", ".....", "A...E"}, b.Board().Render())
}

func TestParseBattleConfig_JSON(t *testing.T) {
	data := []byte(`{
		"name": "duel",
		"width": 4,
		"height": 4,
		"walls": [{"x": 2, "y": 2}],
		"units": [
			{"faction": "ally", "x": 0, "y": 0},
			{"faction": "enemy", "x": 3, "y": 3, "move_range": 1}
		]
	}`)

	config, err := ParseBattleConfig("duel.json", data)
	require.NoError(t, err)

	placements := config.placements()
	require.Len(t, placements, 2)
	assert.Equal(t, DefaultMoveRange, placements[0].Range())
	assert.Equal(t, 1, placements[1].Range())
	assert.Equal(t, []Position{Pos(2, 2)}, config.Walls)
}

func TestParseBattleConfig_ZeroMoveRange(t *testing.T) {
	data := []byte(`
name: sentry
width: 4
height: 4
default_move_range: 3
units:
  - {faction: ally, x: 0, y: 0}
  - {faction: enemy, x: 3, y: 3, move_range: 0}
`)

	config, err := ParseBattleConfig("sentry.yaml", data)
	require.NoError(t, err)

	placements := config.placements()
	require.Len(t, placements, 2)
	assert.Equal(t, 3, placements[0].Range())
	assert.Equal(t, 0, placements[1].Range(), "explicit zero is kept")

	b := newTestBattle(t, config)
	sentry, ok := b.Unit(2)
	require.True(t, ok)
	assert.Equal(t, 0, sentry.MoveRange)
	assert.Zero(t, ComputeReachable(b.Board(), sentry.Position, sentry.MoveRange).Size())
}

func TestParseBattleConfig_Errors(t *testing.T) {
	_, err := ParseBattleConfig("broken.json", []byte(`{"name":`))
	assert.Error(t, err)

	_, err = ParseBattleConfig("broken.yaml", []byte("name: [unterminated"))
	assert.Error(t, err)

	_, err = ParseBattleConfig("bad.yaml", []byte("name: bad\nwidth: 4\nheight: 4\nlayout: [\"A..\", \"....\", \"....\", \"....\"]\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = ParseBattleConfig("chars.yaml", []byte("name: bad\nwidth: 2\nheight: 2\nlayout: [\"A?\", \"..\"]\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadBattleConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: tiny\nwidth: 3\nheight: 3\nlayout: [\"A..\", \".#.\", \"..E\"]\n"), 0644))

	config, err := LoadBattleConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", config.Name)

	_, err = LoadBattleConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_ReflectsSelection(t *testing.T) {
	b := newTestBattle(t, testConfig(4, 4, ally(0, 0, 1), enemy(3, 3, 1)))
	require.NoError(t, b.StartNewRound())
	require.NoError(t, b.SelectUnit(1))

	st := b.State()

	assert.Equal(t, "test", st.ConfigName)
	assert.Equal(t, 4, st.Width)
	assert.Equal(t, []string{"A...", "....", "....", "...E"}, st.Grid)
	assert.Equal(t, UnitID(1), st.SelectedUnit)
	assert.Equal(t, []Position{Pos(1, 0), Pos(0, 1)}, st.Reachable)
	assert.Equal(t, []UnitID{1}, st.PendingAlly)
	assert.Equal(t, Ally, st.ActiveFaction)
	assert.True(t, st.AwaitingInput)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	config := DefaultBattleConfig()
	b := newTestBattle(t, config)
	require.NoError(t, b.StartNewRound())
	require.NoError(t, b.EndCurrentAction())

	mover := b.Pending(Ally)[0]
	require.NoError(t, b.SelectUnit(mover))
	u, _ := b.Unit(mover)
	steps := AdjacentMoves(b.Board(), u.Position)
	require.NotEmpty(t, steps)
	require.NoError(t, b.MoveUnit(steps[0]))
	require.NoError(t, b.SelectUnit(mover))

	data, err := json.Marshal(b.Snapshot())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	restored, err := RestoreBattle(config, &snap, WithSeed(1))
	require.NoError(t, err)

	assert.Equal(t, b.State(), restored.State())
	assertBijection(t, restored)

	// The restored battle keeps playing from the same point
	require.NoError(t, restored.EndCurrentAction())
	moved, _ := restored.Unit(mover)
	assert.True(t, moved.HasActed)

	id, err := restored.PlaceUnit(Enemy, Pos(5, 5))
	require.NoError(t, err)
	assert.Equal(t, UnitID(7), id)
}

func TestRestoreBattle_RejectsInconsistentSnapshots(t *testing.T) {
	config := testConfig(4, 4, ally(0, 0, 2))
	config.Walls = []Position{Pos(2, 2)}

	tests := []struct {
		name string
		snap *Snapshot
	}{
		{"unit on wall", &Snapshot{Units: []Unit{{ID: 1, Faction: Ally, Position: Pos(2, 2), MoveRange: 2}}}},
		{"unit outside", &Snapshot{Units: []Unit{{ID: 1, Faction: Ally, Position: Pos(9, 0), MoveRange: 2}}}},
		{"shared tile", &Snapshot{Units: []Unit{
			{ID: 1, Faction: Ally, Position: Pos(0, 0)},
			{ID: 2, Faction: Enemy, Position: Pos(0, 0)},
		}}},
		{"duplicate id", &Snapshot{Units: []Unit{
			{ID: 1, Faction: Ally, Position: Pos(0, 0)},
			{ID: 1, Faction: Enemy, Position: Pos(1, 0)},
		}}},
		{"queued unit already acted", &Snapshot{
			Units:       []Unit{{ID: 1, Faction: Ally, Position: Pos(0, 0), HasActed: true}},
			PendingAlly: []UnitID{1},
		}},
		{"queued under wrong faction", &Snapshot{
			Units:        []Unit{{ID: 1, Faction: Ally, Position: Pos(0, 0)}},
			PendingEnemy: []UnitID{1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreBattle(config, tt.snap)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := RestoreBattle(config, nil)
	assert.Error(t, err)
}

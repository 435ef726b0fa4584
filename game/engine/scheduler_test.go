package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turnEndedFactions(events []Event) []Faction {
	var out []Faction
	for _, ev := range events {
		if ev.Type == EventTurnEnded {
			out = append(out, ev.Faction)
		}
	}
	return out
}

func TestStartNewRound_NoUnits(t *testing.T) {
	b := newTestBattle(t, testConfig(4, 4, ally(0, 0, 2)))
	require.NoError(t, b.RemoveUnit(1))

	err := b.StartNewRound()

	assert.ErrorIs(t, err, ErrNoUnitsConfigured)
	assert.False(t, b.Started())
	assert.Equal(t, 1, b.RoundNumber())
}

func TestStartNewRound_QueuesEveryUnit(t *testing.T) {
	rec := &recorder{}
	b := newTestBattle(t, DefaultBattleConfig(), WithListener(rec.listen))

	require.NoError(t, b.StartNewRound())

	assert.True(t, b.Started())
	assert.Equal(t, 1, b.RoundNumber())
	assert.Equal(t, Ally, b.ActiveFaction())
	assert.True(t, b.AwaitingInput())
	assert.ElementsMatch(t, []UnitID{1, 2, 3}, b.Pending(Ally))
	assert.ElementsMatch(t, []UnitID{4, 5, 6}, b.Pending(Enemy))
	assert.Equal(t, []EventType{EventRoundStarted, EventTurnStarted}, rec.types())
	assert.Equal(t, 1, rec.events[0].Round)
}

func TestEndCurrentAction_RoundRollsOver(t *testing.T) {
	rec := &recorder{}
	b := newTestBattle(t, testConfig(10, 10, ally(0, 0, 3), enemy(9, 9, 3)), WithListener(rec.listen))
	require.NoError(t, b.StartNewRound())
	rec.reset()

	// The ally ends its action without moving
	require.NoError(t, b.EndCurrentAction())

	assert.Equal(t, []EventType{
		EventTurnEnded,
		EventTurnStarted,
		EventUnitSelected,
		EventUnitDeselected,
		EventUnitMoved,
		EventTurnEnded,
		EventRoundEnded,
		EventRoundStarted,
		EventTurnStarted,
	}, rec.types())

	assert.Equal(t, 2, b.RoundNumber())
	assert.Equal(t, Ally, b.ActiveFaction())
	assert.True(t, b.AwaitingInput())
	assert.Equal(t, []UnitID{1}, b.Pending(Ally))
	assert.Equal(t, []UnitID{2}, b.Pending(Enemy))

	foe, _ := b.Unit(2)
	assert.Contains(t, []Position{Pos(9, 8), Pos(8, 9)}, foe.Position, "enemy takes one step")
	assert.Equal(t, 3, foe.RemainingMoveRange, "budget restored for round 2")
	assert.False(t, foe.HasActed)

	friend, _ := b.Unit(1)
	assert.Equal(t, Pos(0, 0), friend.Position)
	assertBijection(t, b)
}

func TestEndCurrentAction_AlternatesFactions(t *testing.T) {
	rec := &recorder{}
	b := newTestBattle(t, testConfig(6, 6, ally(0, 0, 2), ally(1, 0, 2), enemy(5, 5, 2)), WithListener(rec.listen))
	require.NoError(t, b.StartNewRound())

	require.NoError(t, b.EndCurrentAction())
	assert.Equal(t, 1, b.RoundNumber())
	assert.Equal(t, Ally, b.ActiveFaction())
	assert.Empty(t, b.Pending(Enemy))

	require.NoError(t, b.EndCurrentAction())
	assert.Equal(t, 2, b.RoundNumber())
	assert.Equal(t, []Faction{Ally, Enemy, Ally}, turnEndedFactions(rec.events))
}

func TestEndCurrentAction_SkipsExhaustedFaction(t *testing.T) {
	rec := &recorder{}
	b := newTestBattle(t, testConfig(6, 6, ally(0, 0, 2), enemy(5, 5, 2), enemy(5, 0, 2)), WithListener(rec.listen))
	require.NoError(t, b.StartNewRound())

	require.NoError(t, b.EndCurrentAction())

	assert.Equal(t, []Faction{Ally, Enemy, Enemy}, turnEndedFactions(rec.events))
	assert.Equal(t, 2, b.RoundNumber())
}

func TestEndCurrentAction_RoundEndInvariant(t *testing.T) {
	b := newTestBattle(t, DefaultBattleConfig())
	ended := 0
	b.Subscribe(func(ev Event) {
		if ev.Type != EventRoundEnded {
			return
		}
		ended++
		assert.Empty(t, b.Pending(Ally))
		assert.Empty(t, b.Pending(Enemy))
		for _, u := range b.Units() {
			assert.True(t, u.HasActed, "unit %d has not acted by the end of round %d", u.ID, ev.Round)
		}
	})
	require.NoError(t, b.StartNewRound())

	for steps := 0; b.RoundNumber() < 4; steps++ {
		require.Less(t, steps, 20, "battle stopped advancing")
		require.NoError(t, b.EndCurrentAction())
		assertBijection(t, b)
	}
	assert.Equal(t, 3, ended)
}

func TestPlaceUnit_MidRoundJoinsQueue(t *testing.T) {
	b := newTestBattle(t, DefaultBattleConfig())
	ended := 0
	b.Subscribe(func(ev Event) {
		if ev.Type != EventRoundEnded {
			return
		}
		ended++
		for _, u := range b.Units() {
			assert.True(t, u.HasActed, "unit %d has not acted by the end of round %d", u.ID, ev.Round)
		}
	})
	require.NoError(t, b.StartNewRound())

	lateAlly, err := b.PlaceUnit(Ally, Pos(5, 5))
	require.NoError(t, err)
	lateEnemy, err := b.PlaceUnit(Enemy, Pos(6, 6))
	require.NoError(t, err)

	assert.Equal(t, lateAlly, b.Pending(Ally)[len(b.Pending(Ally))-1])
	assert.Equal(t, lateEnemy, b.Pending(Enemy)[len(b.Pending(Enemy))-1])

	require.NoError(t, b.SelectUnit(lateAlly))
	require.NoError(t, b.SelectUnit(NoUnit))

	for steps := 0; b.RoundNumber() < 2; steps++ {
		require.Less(t, steps, 10, "battle stopped advancing")
		require.NoError(t, b.EndCurrentAction())
		assertBijection(t, b)
	}
	assert.Equal(t, 1, ended)
	assert.Contains(t, b.Pending(Ally), lateAlly)
	assert.Contains(t, b.Pending(Enemy), lateEnemy)
}

func TestPlaceUnit_BeforeFirstRound(t *testing.T) {
	b := newTestBattle(t, DefaultBattleConfig())
	_, err := b.PlaceUnit(Ally, Pos(5, 5))
	require.NoError(t, err)

	assert.Empty(t, b.Pending(Ally))
	require.NoError(t, b.StartNewRound())
	assert.Len(t, b.Pending(Ally), 4)
}

func TestEndCurrentAction_ActingUnitChoice(t *testing.T) {
	config := testConfig(8, 8, ally(0, 0, 3), ally(2, 0, 3), ally(4, 0, 3), enemy(7, 7, 2))

	t.Run("queue front", func(t *testing.T) {
		b := newTestBattle(t, config)
		require.NoError(t, b.StartNewRound())
		front := b.Pending(Ally)[0]

		require.NoError(t, b.EndCurrentAction())

		u, _ := b.Unit(front)
		assert.True(t, u.HasActed)
		assert.NotContains(t, b.Pending(Ally), front)
		assert.Len(t, b.Pending(Ally), 2)
	})

	t.Run("selected unit", func(t *testing.T) {
		b := newTestBattle(t, config)
		require.NoError(t, b.StartNewRound())
		chosen := b.Pending(Ally)[2]
		require.NoError(t, b.SelectUnit(chosen))

		require.NoError(t, b.EndCurrentAction())

		u, _ := b.Unit(chosen)
		assert.True(t, u.HasActed)
		assert.Len(t, b.Pending(Ally), 2)
	})

	t.Run("unit that moved", func(t *testing.T) {
		b := newTestBattle(t, config)
		require.NoError(t, b.StartNewRound())
		chosen := b.Pending(Ally)[1]
		require.NoError(t, b.SelectUnit(chosen))
		mover, _ := b.Unit(chosen)
		require.NoError(t, b.MoveUnit(mover.Position.Add(Pos(0, 1))))

		require.NoError(t, b.EndCurrentAction())

		u, _ := b.Unit(chosen)
		assert.True(t, u.HasActed)
		assert.NotContains(t, b.Pending(Ally), chosen)
	})
}

func TestEndCurrentAction_Rejections(t *testing.T) {
	b := newTestBattle(t, testConfig(5, 5, ally(0, 0, 2), enemy(4, 4, 2)))

	assert.ErrorIs(t, b.EndCurrentAction(), ErrRoundNotStarted)

	require.NoError(t, b.StartNewRound())
	b.scheduler.faction = Enemy
	b.scheduler.awaitingInput = false

	assert.ErrorIs(t, b.EndCurrentAction(), ErrNotPlayerTurn)
}

func TestMovementBudgetRestoredEachRound(t *testing.T) {
	b := newTestBattle(t, testConfig(6, 6, ally(0, 0, 3), enemy(5, 5, 2)))
	require.NoError(t, b.StartNewRound())
	require.NoError(t, b.SelectUnit(1))
	require.NoError(t, b.MoveUnit(Pos(0, 2)))

	u, _ := b.Unit(1)
	require.Equal(t, 1, u.RemainingMoveRange)

	require.NoError(t, b.EndCurrentAction())

	u, _ = b.Unit(1)
	assert.Equal(t, 2, b.RoundNumber())
	assert.Equal(t, 3, u.RemainingMoveRange)
	assert.False(t, u.HasActed)
	assert.Equal(t, Pos(0, 2), u.Position)
}

func TestEnemyWithoutLegalMoveStillActs(t *testing.T) {
	config := testConfig(5, 5, ally(4, 4, 2), enemy(0, 0, 2))
	config.Walls = []Position{Pos(1, 0), Pos(0, 1)}
	b := newTestBattle(t, config)
	idle, err := b.PlaceUnitWithRange(Enemy, Pos(2, 2), 0)
	require.NoError(t, err)
	require.NoError(t, b.StartNewRound())

	require.NoError(t, b.EndCurrentAction())

	assert.Equal(t, 2, b.RoundNumber())
	boxed, _ := b.Unit(2)
	assert.Equal(t, Pos(0, 0), boxed.Position)
	still, _ := b.Unit(idle)
	assert.Equal(t, Pos(2, 2), still.Position, "zero budget never moves")
}

func TestEnemyOnlyRosterStopsAfterOneRound(t *testing.T) {
	rec := &recorder{}
	b := newTestBattle(t, testConfig(5, 5, enemy(0, 0, 2), enemy(4, 4, 2)), WithListener(rec.listen))

	require.NoError(t, b.StartNewRound())

	assert.False(t, b.Started())
	assert.False(t, b.AwaitingInput())
	assert.Equal(t, PhaseEnd, b.Phase())
	assert.Equal(t, 2, b.RoundNumber())
	assert.Equal(t, []Faction{Enemy, Enemy}, turnEndedFactions(rec.events))
	assert.ErrorIs(t, b.EndCurrentAction(), ErrRoundNotStarted)

	require.NoError(t, b.StartNewRound())
	assert.Equal(t, 3, b.RoundNumber())
	assertBijection(t, b)
}

func TestStartNewRound_RestartsCurrentRound(t *testing.T) {
	b := newTestBattle(t, DefaultBattleConfig())
	require.NoError(t, b.StartNewRound())
	require.NoError(t, b.EndCurrentAction())
	require.Len(t, b.Pending(Ally), 2)

	require.NoError(t, b.StartNewRound())

	assert.Equal(t, 1, b.RoundNumber())
	assert.Len(t, b.Pending(Ally), 3)
	assert.Len(t, b.Pending(Enemy), 3)
	for _, u := range b.Units() {
		assert.False(t, u.HasActed)
		assert.Equal(t, u.MoveRange, u.RemainingMoveRange)
	}
}

func TestRoundHookRunsForEveryUnit(t *testing.T) {
	calls := make(map[UnitID]int)
	hook := func(u *Unit) {
		calls[u.ID]++
		u.RemainingMoveRange = 1
	}
	b := newTestBattle(t, testConfig(6, 6, ally(0, 0, 3), enemy(5, 5, 3)), WithRoundHook(hook))

	require.NoError(t, b.StartNewRound())
	assert.Equal(t, map[UnitID]int{1: 1, 2: 1}, calls)
	u, _ := b.Unit(1)
	assert.Equal(t, 1, u.RemainingMoveRange, "hook runs after the budget reset")

	require.NoError(t, b.EndCurrentAction())
	assert.Equal(t, map[UnitID]int{1: 2, 2: 2}, calls)
}

func TestSeededBattlesAreDeterministic(t *testing.T) {
	play := func() []Unit {
		b := newTestBattle(t, DefaultBattleConfig(), WithSeed(7))
		require.NoError(t, b.StartNewRound())
		for b.RoundNumber() < 3 {
			require.NoError(t, b.EndCurrentAction())
		}
		return b.Units()
	}

	assert.Equal(t, play(), play())
}

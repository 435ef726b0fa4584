package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBoard(t *testing.T, width, height int, walls ...Position) *Board {
	t.Helper()
	board, err := NewBoard(width, height)
	require.NoError(t, err)
	for _, w := range walls {
		require.NoError(t, board.SetWalkable(w, false))
	}
	return board
}

func occupy(t *testing.T, board *Board, id UnitID, f Faction, pos Position) *Unit {
	t.Helper()
	u := &Unit{ID: id, Faction: f, Position: pos, MoveRange: 3, RemainingMoveRange: 3}
	require.NoError(t, board.SetOccupant(pos, u))
	return u
}

func TestComputeReachable_OpenField(t *testing.T) {
	board := newTestBoard(t, 5, 5)
	occupy(t, board, 1, Ally, Pos(0, 0))

	reachable := ComputeReachable(board, Pos(0, 0), 2)

	for _, p := range []Position{Pos(1, 0), Pos(2, 0), Pos(0, 1), Pos(0, 2), Pos(1, 1)} {
		assert.True(t, reachable.Has(p), "expected %s to be reachable", p)
	}
	assert.False(t, reachable.Has(Pos(0, 0)), "origin must be excluded")
	assert.False(t, reachable.Has(Pos(3, 0)), "three hops away")
	assert.Equal(t, 5, reachable.Size())
}

func TestComputeReachable_ZeroAndNegativeBudget(t *testing.T) {
	board := newTestBoard(t, 5, 5)

	assert.Equal(t, 0, ComputeReachable(board, Pos(2, 2), 0).Size())
	assert.Equal(t, 0, ComputeReachable(board, Pos(2, 2), -1).Size())
}

func TestComputeReachable_HopCapIsTighterThanEuclideanRadius(t *testing.T) {
	board := newTestBoard(t, 6, 6)

	// (2,2) lies 2.83 tiles away in a straight line but 4 orthogonal hops
	// away, so only the hop cap excludes it.
	reachable := ComputeReachable(board, Pos(0, 0), 3)

	assert.Less(t, euclidean(Pos(0, 0), Pos(2, 2)), 3.0)
	assert.False(t, reachable.Has(Pos(2, 2)))
	assert.True(t, reachable.Has(Pos(2, 1)), "three hops, distance 2.24")
	assert.True(t, reachable.Has(Pos(3, 0)), "three hops, distance 3")

	// Every included tile satisfies both metrics
	reachable.Each(func(p Position) {
		assert.LessOrEqual(t, ManhattanDistance(Pos(0, 0), p), 3)
		assert.LessOrEqual(t, euclidean(Pos(0, 0), p), 3.0)
	})
}

func TestComputeReachable_BlockersStopPassage(t *testing.T) {
	// Wall column at x=1 except for a gap at y=4
	board := newTestBoard(t, 5, 5, Pos(1, 0), Pos(1, 1), Pos(1, 2), Pos(1, 3))
	occupy(t, board, 2, Enemy, Pos(0, 1))

	reachable := ComputeReachable(board, Pos(0, 0), 4)

	assert.False(t, reachable.Has(Pos(1, 0)), "walls are never reachable")
	assert.False(t, reachable.Has(Pos(0, 1)), "occupied tiles are never reachable")
	assert.False(t, reachable.Has(Pos(2, 0)), "cannot pass through the wall")
	assert.False(t, reachable.Has(Pos(0, 2)), "cannot pass through the enemy")
	assert.Equal(t, 0, reachable.Size())
}

func TestComputeReachable_MonotonicInBudget(t *testing.T) {
	board := newTestBoard(t, 8, 8, Pos(3, 3), Pos(3, 4), Pos(4, 3))
	occupy(t, board, 1, Ally, Pos(2, 2))
	occupy(t, board, 2, Enemy, Pos(5, 5))

	prev := ComputeReachable(board, Pos(2, 2), 0)
	for budget := 1; budget <= 8; budget++ {
		next := ComputeReachable(board, Pos(2, 2), budget)
		prev.Each(func(p Position) {
			assert.True(t, next.Has(p), "budget %d lost %s", budget, p)
		})
		assert.GreaterOrEqual(t, next.Size(), prev.Size())
		prev = next
	}
}

func TestFindPath_ShortestAroundWall(t *testing.T) {
	board := newTestBoard(t, 5, 5, Pos(1, 0), Pos(1, 1), Pos(1, 2))

	path := FindPath(board, Pos(0, 0), Pos(2, 0))

	require.NotNil(t, path)
	assert.Equal(t, Pos(0, 0), path[0])
	assert.Equal(t, Pos(2, 0), path[len(path)-1])
	assert.Len(t, path, 9, "path must go around the wall through y=3")

	for i := 1; i < len(path); i++ {
		assert.Equal(t, 1, ManhattanDistance(path[i-1], path[i]), "steps must be orthogonal")
	}
}

func TestFindPath_NeverCrossesBlockedTiles(t *testing.T) {
	board := newTestBoard(t, 6, 6, Pos(2, 1), Pos(2, 2), Pos(3, 4))
	occupy(t, board, 1, Ally, Pos(0, 0))
	occupy(t, board, 2, Enemy, Pos(2, 3))
	occupy(t, board, 3, Enemy, Pos(4, 1))

	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			path := FindPath(board, Pos(0, 0), Pos(x, y))
			for _, step := range path[min(1, len(path)):] {
				assert.True(t, board.isOpen(step), "path to (%d,%d) crosses %s", x, y, step)
			}
		}
	}
}

func TestFindPath_OccupiedDestination(t *testing.T) {
	board := newTestBoard(t, 5, 5)
	occupy(t, board, 1, Ally, Pos(0, 0))
	occupy(t, board, 2, Enemy, Pos(0, 2))

	assert.Nil(t, FindPath(board, Pos(0, 0), Pos(0, 2)), "occupied destination has no path")
	assert.NotNil(t, FindPath(board, Pos(0, 0), Pos(0, 3)), "the tile beyond is still reachable around the blocker")
}

func TestFindPath_EdgeCases(t *testing.T) {
	board := newTestBoard(t, 4, 4, Pos(3, 3))
	occupy(t, board, 1, Ally, Pos(1, 1))

	assert.Equal(t, []Position{Pos(1, 1)}, FindPath(board, Pos(1, 1), Pos(1, 1)))
	assert.Nil(t, FindPath(board, Pos(1, 1), Pos(3, 3)), "wall destination")
	assert.Nil(t, FindPath(board, Pos(1, 1), Pos(9, 9)), "outside destination")
}

func TestAdjacentMoves(t *testing.T) {
	board := newTestBoard(t, 3, 3, Pos(1, 2))
	occupy(t, board, 1, Enemy, Pos(1, 1))
	occupy(t, board, 2, Ally, Pos(0, 1))

	assert.Equal(t, []Position{Pos(1, 0), Pos(2, 1)}, AdjacentMoves(board, Pos(1, 1)))
	boxedIn := newTestBoard(t, 2, 2, Pos(1, 0), Pos(0, 1))
	assert.Empty(t, AdjacentMoves(boxedIn, Pos(0, 0)))
}

func TestSortedPositions(t *testing.T) {
	board := newTestBoard(t, 3, 3)
	reachable := ComputeReachable(board, Pos(1, 1), 1)

	assert.Equal(t, []Position{Pos(1, 0), Pos(0, 1), Pos(2, 1), Pos(1, 2)}, SortedPositions(reachable))
}

package engine

import (
	"math"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// ComputeReachable returns the tiles a unit standing on origin could move to
// with the given budget.
//
// The search is a layered BFS over the 4-connected grid running budget
// layers deep. A tile is included when it is walkable, unoccupied, within
// budget hops, and within a straight-line (Euclidean) distance of budget from
// origin. Occupied and non-walkable tiles are visited once but never
// included and never expanded, so they block passage. The origin itself is
// never included.
func ComputeReachable(b *Board, origin Position, budget int) mapset.Set[Position] {
	reachable := mapset.New[Position]()
	if budget < 0 || !b.IsInside(origin) {
		return reachable
	}

	visited := mapset.New[Position]()
	visited.Put(origin)
	queue := []Position{origin}

	for depth := 0; len(queue) > 0 && depth <= budget; depth++ {
		level := queue
		queue = nil

		for _, current := range level {
			if current != origin {
				if !b.isOpen(current) {
					continue
				}
				if euclidean(origin, current) <= float64(budget) {
					reachable.Put(current)
				}
			}

			for _, dir := range directions {
				next := current.Add(dir)
				if b.IsInside(next) && !visited.Has(next) {
					visited.Put(next)
					queue = append(queue, next)
				}
			}
		}
	}

	return reachable
}

// FindPath returns the shortest 4-connected path from start to end,
// inclusive of both, or nil when no path exists. Only walkable, unoccupied
// tiles are entered; the start tile is not checked because the moving unit
// stands on it.
func FindPath(b *Board, start, end Position) []Position {
	if !b.IsInside(start) || !b.IsInside(end) {
		return nil
	}

	visited := mapset.New[Position]()
	visited.Put(start)
	queue := [][]Position{{start}}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		current := path[len(path)-1]
		if current == end {
			return path
		}

		for _, dir := range directions {
			next := current.Add(dir)
			if visited.Has(next) || !b.isOpen(next) {
				continue
			}
			visited.Put(next)

			extended := make([]Position, len(path), len(path)+1)
			copy(extended, path)
			queue = append(queue, append(extended, next))
		}
	}

	return nil
}

// AdjacentMoves lists the open neighbours of pos in search order
func AdjacentMoves(b *Board, pos Position) []Position {
	var moves []Position
	for _, dir := range directions {
		next := pos.Add(dir)
		if b.isOpen(next) {
			moves = append(moves, next)
		}
	}
	return moves
}

// SortedPositions returns the members of set ordered by row then column
func SortedPositions(set mapset.Set[Position]) []Position {
	out := make([]Position, 0, set.Size())
	set.Each(func(p Position) {
		out = append(out, p)
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func euclidean(a, b Position) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

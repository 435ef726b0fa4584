package main

import (
	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
)

// Strategy decides what the bot does with one ally unit
type Strategy interface {
	// Choose returns the tile the unit should move to, or false to end its
	// action in place. reachable is the unit's legal destinations.
	Choose(state *engine.State, unit engine.Unit, reachable []engine.Position) (engine.Position, bool)
}

// AdvanceStrategy closes the distance to the nearest enemy. Ties keep the
// first candidate in reachable order, so play is deterministic for a given
// state.
type AdvanceStrategy struct{}

func (AdvanceStrategy) Choose(state *engine.State, unit engine.Unit, reachable []engine.Position) (engine.Position, bool) {
	enemies := positionsOf(state, engine.Enemy)
	if len(enemies) == 0 {
		return engine.Position{}, false
	}

	best := unit.Position
	bestDist := nearest(unit.Position, enemies)
	for _, p := range reachable {
		// Stop next to an enemy, there is nothing to gain closer
		if bestDist <= 1 {
			break
		}
		if d := nearest(p, enemies); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, best != unit.Position
}

// HoldStrategy never moves; units end their action in place
type HoldStrategy struct{}

func (HoldStrategy) Choose(*engine.State, engine.Unit, []engine.Position) (engine.Position, bool) {
	return engine.Position{}, false
}

func positionsOf(state *engine.State, f engine.Faction) []engine.Position {
	var out []engine.Position
	for _, u := range state.Units {
		if u.Faction == f {
			out = append(out, u.Position)
		}
	}
	return out
}

func nearest(from engine.Position, targets []engine.Position) int {
	best := -1
	for _, t := range targets {
		if d := engine.ManhattanDistance(from, t); best < 0 || d < best {
			best = d
		}
	}
	return best
}

func unitByID(state *engine.State, id engine.UnitID) (engine.Unit, bool) {
	for _, u := range state.Units {
		if u.ID == id {
			return u, true
		}
	}
	return engine.Unit{}, false
}

func strategyByName(name string) (Strategy, bool) {
	switch name {
	case "advance", "":
		return AdvanceStrategy{}, true
	case "hold":
		return HoldStrategy{}, true
	}
	return nil, false
}

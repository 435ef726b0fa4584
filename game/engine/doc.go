// Package engine provides the rules core of the Tactics Grid battle.
//
// The engine package implements the battle mechanics including:
//   - A fixed-size tile board with walkability and single-unit occupancy
//   - Breadth-first reachability and shortest-path search over the grid
//   - Unit selection and movement with a per-round movement budget
//   - A round scheduler alternating Ally (player) and Enemy (AI) turns
//   - Battle configuration loading (JSON or YAML) and validation
//
// Core Types:
//
// Battle is the entry point used by presentation layers. It owns the Board,
// the unit roster, a Controller that validates and commits moves, and a
// Scheduler that drives rounds. Everything runs synchronously on the
// caller's goroutine; callers that share a Battle between goroutines must
// serialize access to it.
//
// Usage:
//
//	battle, err := engine.NewBattle(engine.DefaultBattleConfig(), engine.WithSeed(7))
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := battle.StartNewRound(); err != nil {
//		log.Fatal(err)
//	}
//
//	// Ally turn: the caller picks a unit and a destination
//	_ = battle.SelectUnit(1)
//	tiles, _ := battle.ReachableTiles()
//	_ = battle.MoveUnit(tiles[0])
//	_ = battle.EndCurrentAction() // the Enemy AI acts before this returns
//
// Rounds:
//
// At the start of every round each unit's movement budget is restored and
// both faction queues are rebuilt in shuffled order. Ally turns wait for
// external intents; Enemy turns pick a random one-step move. A round ends
// when both queues are empty and the next one starts automatically.
package engine

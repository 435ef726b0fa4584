// Command analyze prints quick, human-readable heuristics about the battle
// scenarios in a config directory. It summarizes dimensions and rosters,
// flags units that cannot move on the first turn, and estimates how many
// rounds the closest ally and enemy need to make contact.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/wricardo/mcp-training/tacticsgrid/game/config"
	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
)

// Report holds the analysis of one scenario
type Report struct {
	ConfigID     string
	Name         string
	Width        int
	Height       int
	Walls        int
	Allies       int
	Enemies      int
	Stuck        []engine.Unit // units with no legal first move
	Reach        map[engine.UnitID]int
	Connected    bool // some ally can walk to some enemy, ignoring units
	ContactSteps int  // shortest walk between an ally and an enemy, -1 when none
	ContactRange int  // move range used for the contact estimate
}

// ContactRounds estimates the rounds needed for the closest pair to become
// adjacent if only the ally moves, or -1 when they can never meet
func (r Report) ContactRounds() int {
	if !r.Connected || r.ContactRange <= 0 {
		return -1
	}
	// The last step lands next to the enemy, not on it
	steps := r.ContactSteps - 1
	if steps <= 0 {
		return 0
	}
	return (steps + r.ContactRange - 1) / r.ContactRange
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := run(os.Stdout, dir); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, dir string) error {
	manager, err := config.NewManager(dir, zerolog.Nop())
	if err != nil {
		return err
	}

	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	for _, info := range infos {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", info.ConfigID)

		cfg, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			fmt.Fprintf(w, "Error loading scenario: %v\n", err)
			continue
		}
		report, err := analyze(info.ConfigID, cfg)
		if err != nil {
			fmt.Fprintf(w, "Error building battle: %v\n", err)
			continue
		}
		printReport(w, report)
	}
	return nil
}

// analyze places the scenario's roster and measures first-turn mobility and
// the distance between the factions
func analyze(id string, cfg *engine.BattleConfig) (Report, error) {
	battle, err := engine.NewBattle(cfg, engine.WithSeed(1))
	if err != nil {
		return Report{}, err
	}
	board := battle.Board()

	report := Report{
		ConfigID:     id,
		Name:         cfg.Name,
		Width:        board.Width(),
		Height:       board.Height(),
		Reach:        make(map[engine.UnitID]int),
		ContactSteps: -1,
	}
	report.Allies, report.Enemies = cfg.UnitCount()

	// Terrain alone, so units never block the connectivity check
	terrain, err := engine.NewBoard(board.Width(), board.Height())
	if err != nil {
		return Report{}, err
	}
	for _, tile := range board.Tiles() {
		if !tile.Walkable {
			report.Walls++
			if err := terrain.SetWalkable(tile.Position, false); err != nil {
				return Report{}, err
			}
		}
	}

	var allies, enemies []engine.Unit
	for _, u := range battle.Units() {
		n := engine.ComputeReachable(board, u.Position, u.MoveRange).Size()
		report.Reach[u.ID] = n
		if n == 0 {
			report.Stuck = append(report.Stuck, u)
		}
		if u.Faction == engine.Ally {
			allies = append(allies, u)
		} else {
			enemies = append(enemies, u)
		}
	}

	for _, a := range allies {
		for _, e := range enemies {
			path := engine.FindPath(terrain, a.Position, e.Position)
			if path == nil {
				continue
			}
			steps := len(path) - 1
			if report.ContactSteps < 0 || steps < report.ContactSteps {
				report.Connected = true
				report.ContactSteps = steps
				report.ContactRange = a.MoveRange
			}
		}
	}

	return report, nil
}

func printReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "Name: %s\n", r.Name)
	fmt.Fprintf(w, "Board: %d x %d, %d walls\n", r.Width, r.Height, r.Walls)
	fmt.Fprintf(w, "Units: %d allies, %d enemies\n", r.Allies, r.Enemies)

	if len(r.Stuck) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d units cannot move on their first turn\n", len(r.Stuck))
		for _, u := range r.Stuck {
			fmt.Fprintf(w, "   Stuck: %s unit %d at %s\n", u.Faction, u.ID, u.Position)
		}
	} else {
		fmt.Fprintf(w, "✅ Every unit has at least one legal first move\n")
	}

	if !r.Connected {
		fmt.Fprintf(w, "⚠️  CRITICAL: walls separate the factions, they can never meet\n")
		return
	}
	fmt.Fprintf(w, "✅ Closest ally and enemy are %d steps apart (about %d rounds to contact)\n",
		r.ContactSteps, r.ContactRounds())
}

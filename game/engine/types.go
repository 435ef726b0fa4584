package engine

import "fmt"

// Faction identifies one of the two opposing sides
type Faction string

const (
	Ally  Faction = "ally"
	Enemy Faction = "enemy"
)

// Opponent returns the other faction
func (f Faction) Opponent() Faction {
	if f == Ally {
		return Enemy
	}
	return Ally
}

// Valid reports whether f is a known faction
func (f Faction) Valid() bool {
	return f == Ally || f == Enemy
}

// Phase is the step of the current unit's action
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseMovement Phase = "movement"
	PhaseAction   Phase = "action" // reserved for non-move actions
	PhaseEnd      Phase = "end"
)

const (
	// Validation constants
	MinBoardSize     = 2
	MaxBoardSize     = 64
	MaxMoveRange     = 32
	DefaultMoveRange = 3
)

// Position represents x,y grid coordinates
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Pos is shorthand for Position{X: x, Y: y}
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add returns p translated by d
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// directions lists the 4-connected neighbour offsets in search order:
// up, down, left, right.
var directions = [4]Position{
	{X: 0, Y: 1},
	{X: 0, Y: -1},
	{X: -1, Y: 0},
	{X: 1, Y: 0},
}

// UnitID identifies a unit within one battle. IDs start at 1.
type UnitID int

// NoUnit is passed to SelectUnit to clear the selection
const NoUnit UnitID = 0

// Unit is the per-battle state of a single piece
type Unit struct {
	ID                 UnitID   `json:"id"`
	Faction            Faction  `json:"faction"`
	Position           Position `json:"position"`
	MoveRange          int      `json:"move_range"`
	RemainingMoveRange int      `json:"remaining_move_range"`
	HasActed           bool     `json:"has_acted"`
	Selected           bool     `json:"selected"`
}

// resetForRound restores the movement budget and clears the acted flag
func (u *Unit) resetForRound() {
	u.RemainingMoveRange = u.MoveRange
	u.HasActed = false
}

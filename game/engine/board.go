package engine

import (
	"fmt"
	"strings"
)

// Tile is a single board cell. The occupant is a weak reference: the board
// never owns units, the roster does.
type Tile struct {
	Position Position
	Walkable bool
	occupant *Unit
}

// Occupant returns the unit standing on the tile, or nil
func (t *Tile) Occupant() *Unit {
	return t.occupant
}

// Board is a fixed-size grid of tiles stored row-major
type Board struct {
	width  int
	height int
	tiles  []Tile
}

// NewBoard creates a width x height board with every tile walkable
func NewBoard(width, height int) (*Board, error) {
	if width < MinBoardSize || width > MaxBoardSize || height < MinBoardSize || height > MaxBoardSize {
		return nil, fmt.Errorf("%w: board must be between %dx%d and %dx%d, got %dx%d",
			ErrInvalidConfig, MinBoardSize, MinBoardSize, MaxBoardSize, MaxBoardSize, width, height)
	}

	b := &Board{
		width:  width,
		height: height,
		tiles:  make([]Tile, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.tiles[y*width+x] = Tile{Position: Position{X: x, Y: y}, Walkable: true}
		}
	}
	return b, nil
}

// Width returns the number of columns
func (b *Board) Width() int { return b.width }

// Height returns the number of rows
func (b *Board) Height() int { return b.height }

// IsInside reports whether pos lies within [0,width) x [0,height)
func (b *Board) IsInside(pos Position) bool {
	return pos.X >= 0 && pos.X < b.width && pos.Y >= 0 && pos.Y < b.height
}

func (b *Board) tile(pos Position) (*Tile, error) {
	if !b.IsInside(pos) {
		return nil, fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, pos, b.width, b.height)
	}
	return &b.tiles[pos.Y*b.width+pos.X], nil
}

// Tile returns a copy of the tile at pos
func (b *Board) Tile(pos Position) (Tile, error) {
	t, err := b.tile(pos)
	if err != nil {
		return Tile{}, err
	}
	return *t, nil
}

// IsWalkable reports whether the tile at pos can be entered
func (b *Board) IsWalkable(pos Position) (bool, error) {
	t, err := b.tile(pos)
	if err != nil {
		return false, err
	}
	return t.Walkable, nil
}

// SetWalkable marks the tile at pos as floor or wall
func (b *Board) SetWalkable(pos Position, walkable bool) error {
	t, err := b.tile(pos)
	if err != nil {
		return err
	}
	t.Walkable = walkable
	return nil
}

// OccupantAt returns the unit at pos, or nil when the tile is empty
func (b *Board) OccupantAt(pos Position) (*Unit, error) {
	t, err := b.tile(pos)
	if err != nil {
		return nil, err
	}
	return t.occupant, nil
}

// SetOccupant places u (or nil) on the tile at pos. The caller is
// responsible for keeping u.Position synchronized.
func (b *Board) SetOccupant(pos Position, u *Unit) error {
	t, err := b.tile(pos)
	if err != nil {
		return err
	}
	t.occupant = u
	return nil
}

// isOpen reports whether pos is inside, walkable and unoccupied
func (b *Board) isOpen(pos Position) bool {
	if !b.IsInside(pos) {
		return false
	}
	t := &b.tiles[pos.Y*b.width+pos.X]
	return t.Walkable && t.occupant == nil
}

// Tiles returns a row-major copy of every tile
func (b *Board) Tiles() []Tile {
	out := make([]Tile, len(b.tiles))
	copy(out, b.tiles)
	return out
}

// Render draws the board as text rows, y=0 first: '.' floor, '#' wall,
// 'A' ally, 'E' enemy.
func (b *Board) Render() []string {
	rows := make([]string, b.height)
	var sb strings.Builder
	for y := 0; y < b.height; y++ {
		sb.Reset()
		for x := 0; x < b.width; x++ {
			t := &b.tiles[y*b.width+x]
			switch {
			case t.occupant != nil && t.occupant.Faction == Ally:
				sb.WriteByte('A')
			case t.occupant != nil:
				sb.WriteByte('E')
			case !t.Walkable:
				sb.WriteByte('#')
			default:
				sb.WriteByte('.')
			}
		}
		rows[y] = sb.String()
	}
	return rows
}

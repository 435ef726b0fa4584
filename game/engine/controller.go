package engine

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zyedidia/generic/mapset"
)

// turnGate is consulted by the Controller before a selection and informed
// after a committed move. The Scheduler implements it.
type turnGate interface {
	authorizeSelection(u *Unit) error
	unitMoved(u *Unit)
}

// Controller validates and commits selections and moves. It is the only
// component that changes tile occupancy after setup.
type Controller struct {
	board     *Board
	gate      turnGate
	events    *dispatcher
	log       zerolog.Logger
	selected  *Unit
	reachable mapset.Set[Position]
}

func newController(board *Board, events *dispatcher, log zerolog.Logger) *Controller {
	return &Controller{
		board:     board,
		events:    events,
		log:       log,
		reachable: mapset.New[Position](),
	}
}

// Selected returns the selected unit, or nil
func (c *Controller) Selected() *Unit {
	return c.selected
}

// SelectUnit makes u the selected unit and computes its reachable tiles.
// Passing nil clears the selection; doing so with nothing selected is a
// no-op. A rejected selection leaves the previous selection in place.
func (c *Controller) SelectUnit(u *Unit) error {
	if u == nil {
		c.deselect()
		return nil
	}

	if c.gate != nil {
		if err := c.gate.authorizeSelection(u); err != nil {
			c.log.Debug().Err(err).Int("unit", int(u.ID)).Msg("selection rejected")
			return err
		}
	}

	if c.selected != nil && c.selected != u {
		c.deselect()
	}

	c.selected = u
	u.Selected = true
	c.reachable = ComputeReachable(c.board, u.Position, u.RemainingMoveRange)

	c.log.Debug().
		Int("unit", int(u.ID)).
		Stringer("pos", u.Position).
		Int("reachable", c.reachable.Size()).
		Msg("unit selected")
	c.events.emit(Event{Type: EventUnitSelected, Faction: u.Faction, Unit: u.ID})
	return nil
}

func (c *Controller) deselect() {
	if c.selected == nil {
		return
	}
	u := c.selected
	u.Selected = false
	c.selected = nil
	c.reachable = mapset.New[Position]()
	c.events.emit(Event{Type: EventUnitDeselected, Faction: u.Faction, Unit: u.ID})
}

// Reachable returns the reachable tiles of the selected unit
func (c *Controller) Reachable() ([]Position, error) {
	if c.selected == nil {
		return nil, ErrNoActiveSelection
	}
	return SortedPositions(c.reachable), nil
}

// PathTo previews the path of the selected unit to target. A nil slice with
// a nil error means no path exists.
func (c *Controller) PathTo(target Position) ([]Position, error) {
	if c.selected == nil {
		return nil, ErrNoActiveSelection
	}
	if !c.board.IsInside(target) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfBounds, target)
	}
	return FindPath(c.board, c.selected.Position, target), nil
}

// MoveUnit moves the selected unit to target. Rejections are logged and
// returned; they leave board and unit untouched. A committed move is atomic.
func (c *Controller) MoveUnit(target Position) error {
	cost, err := c.validateMove(target)
	if err != nil {
		c.log.Debug().Err(err).Stringer("target", target).Msg("move rejected")
		return err
	}

	u := c.selected
	from := u.Position

	// Both positions were checked by validateMove
	_ = c.board.SetOccupant(from, nil)
	_ = c.board.SetOccupant(target, u)
	u.Position = target
	u.RemainingMoveRange -= cost

	c.log.Debug().
		Int("unit", int(u.ID)).
		Stringer("from", from).
		Stringer("to", target).
		Int("cost", cost).
		Int("remaining", u.RemainingMoveRange).
		Msg("unit moved")

	c.deselect()
	c.events.emit(Event{Type: EventUnitMoved, Faction: u.Faction, Unit: u.ID, From: &from, To: &target})

	if c.gate != nil {
		c.gate.unitMoved(u)
	}
	return nil
}

func (c *Controller) validateMove(target Position) (int, error) {
	u := c.selected
	if u == nil {
		return 0, ErrNoActiveSelection
	}

	walkable, err := c.board.IsWalkable(target)
	if err != nil {
		return 0, err
	}
	if !walkable {
		return 0, fmt.Errorf("%w: %s", ErrNotWalkable, target)
	}

	occupant, _ := c.board.OccupantAt(target)
	if occupant != nil {
		return 0, fmt.Errorf("%w: %s holds unit %d", ErrTileOccupied, target, occupant.ID)
	}

	path := FindPath(c.board, u.Position, target)
	if path == nil {
		return 0, fmt.Errorf("%w: no path from %s to %s", ErrUnreachable, u.Position, target)
	}

	cost := len(path) - 1
	if cost > u.RemainingMoveRange {
		return 0, fmt.Errorf("%w: %s costs %d, %d remaining", ErrInsufficientMovement, target, cost, u.RemainingMoveRange)
	}

	if !c.reachable.Has(target) {
		return 0, fmt.Errorf("%w: %s is outside the movement area", ErrUnreachable, target)
	}

	return cost, nil
}

// clearIfRemoved drops the selection when u is being removed from play
func (c *Controller) clearIfRemoved(u *Unit) {
	if c.selected == u {
		c.deselect()
	}
}

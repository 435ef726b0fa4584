package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// Battle wires the Board, Controller and Scheduler together and exposes the
// operations used by presentation layers. A Battle is not safe for
// concurrent use.
type Battle struct {
	config     *BattleConfig
	board      *Board
	controller *Controller
	scheduler  *Scheduler
	events     *dispatcher
	log        zerolog.Logger

	units            map[UnitID]*Unit
	nextID           UnitID
	defaultMoveRange int
}

// Option customizes a Battle at construction time
type Option func(*battleOptions)

type battleOptions struct {
	log       zerolog.Logger
	rng       *rand.Rand
	seed      uint64
	seeded    bool
	listeners []Listener
	hook      RoundHook
}

// WithLogger sets the logger used for rejections and round transitions
func WithLogger(log zerolog.Logger) Option {
	return func(o *battleOptions) { o.log = log }
}

// WithSeed seeds the random source used for queue shuffles and AI choices
func WithSeed(seed uint64) Option {
	return func(o *battleOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// WithRand injects the random source directly
func WithRand(rng *rand.Rand) Option {
	return func(o *battleOptions) { o.rng = rng }
}

// WithListener subscribes l before any unit is placed
func WithListener(l Listener) Option {
	return func(o *battleOptions) { o.listeners = append(o.listeners, l) }
}

// WithRoundHook installs a hook run for each unit at round start
func WithRoundHook(h RoundHook) Option {
	return func(o *battleOptions) { o.hook = h }
}

// NewBattle validates config, builds the board and places the configured
// units. Units from the layout are placed first (row by row), then the
// explicit unit list.
func NewBattle(config *BattleConfig, opts ...Option) (*Battle, error) {
	b, err := newEmptyBattle(config, opts...)
	if err != nil {
		return nil, err
	}

	for _, p := range config.placements() {
		if _, err := b.PlaceUnitWithRange(p.Faction, Position{X: p.X, Y: p.Y}, p.Range()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return b, nil
}

func newEmptyBattle(config *BattleConfig, opts ...Option) (*Battle, error) {
	if config == nil {
		config = DefaultBattleConfig()
	}
	if err := ValidateBattleConfig(config); err != nil {
		return nil, err
	}

	o := battleOptions{log: zerolog.Nop()}
	if config.Seed != 0 {
		o.seed, o.seeded = config.Seed, true
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		seed := o.seed
		if !o.seeded {
			seed = uint64(time.Now().UnixNano())
		}
		o.rng = rand.New(rand.NewSource(seed))
	}

	board, err := NewBoard(config.Width, config.Height)
	if err != nil {
		return nil, err
	}
	for _, w := range config.wallPositions() {
		if err := board.SetWalkable(w, false); err != nil {
			return nil, fmt.Errorf("%w: wall %v", ErrInvalidConfig, err)
		}
	}

	b := &Battle{
		config:           config,
		board:            board,
		events:           &dispatcher{},
		log:              o.log,
		units:            make(map[UnitID]*Unit),
		nextID:           1,
		defaultMoveRange: config.moveRange(),
	}
	b.controller = newController(board, b.events, o.log)
	b.scheduler = newScheduler(board, b.controller, b.events, o.rng, o.log)
	b.scheduler.hook = o.hook
	b.events.round = func() int { return b.scheduler.round }
	for _, l := range o.listeners {
		b.events.subscribe(l)
	}
	return b, nil
}

// Config returns the configuration the battle was built from
func (b *Battle) Config() *BattleConfig {
	return b.config
}

// Subscribe registers a listener for battle notifications
func (b *Battle) Subscribe(l Listener) {
	b.events.subscribe(l)
}

// PlaceUnit adds a unit with the default move range at pos
func (b *Battle) PlaceUnit(faction Faction, pos Position) (UnitID, error) {
	return b.PlaceUnitWithRange(faction, pos, b.defaultMoveRange)
}

// PlaceUnitWithRange adds a unit at pos. It fails when pos is outside the
// board, blocked, or already occupied. A unit placed mid-round joins the
// back of its faction's queue.
func (b *Battle) PlaceUnitWithRange(faction Faction, pos Position, moveRange int) (UnitID, error) {
	if !faction.Valid() {
		return NoUnit, fmt.Errorf("%w: unknown faction %q", ErrInvalidConfig, faction)
	}
	if moveRange < 0 || moveRange > MaxMoveRange {
		return NoUnit, fmt.Errorf("%w: move range %d outside [0,%d]", ErrInvalidConfig, moveRange, MaxMoveRange)
	}
	walkable, err := b.board.IsWalkable(pos)
	if err != nil {
		return NoUnit, err
	}
	if !walkable {
		return NoUnit, fmt.Errorf("%w: %s", ErrNotWalkable, pos)
	}
	if occupant, _ := b.board.OccupantAt(pos); occupant != nil {
		return NoUnit, fmt.Errorf("%w: %s holds unit %d", ErrTileOccupied, pos, occupant.ID)
	}

	u := &Unit{
		ID:                 b.nextID,
		Faction:            faction,
		Position:           pos,
		MoveRange:          moveRange,
		RemainingMoveRange: moveRange,
	}
	b.insertUnit(u)
	b.nextID++
	return u.ID, nil
}

func (b *Battle) insertUnit(u *Unit) {
	_ = b.board.SetOccupant(u.Position, u)
	b.units[u.ID] = u
	b.scheduler.addUnit(u)
}

// RemoveUnit takes a unit out of play, clearing its tile, queue entry and
// any selection pointing at it.
func (b *Battle) RemoveUnit(id UnitID) error {
	u, ok := b.units[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	_ = b.board.SetOccupant(u.Position, nil)
	delete(b.units, id)
	b.scheduler.removeUnit(u)
	return nil
}

// SelectUnit selects the unit with the given id; NoUnit clears the selection
func (b *Battle) SelectUnit(id UnitID) error {
	if id == NoUnit {
		return b.controller.SelectUnit(nil)
	}
	u, ok := b.units[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	return b.controller.SelectUnit(u)
}

// MoveUnit moves the selected unit to target
func (b *Battle) MoveUnit(target Position) error {
	return b.controller.MoveUnit(target)
}

// EndCurrentAction ends the current Ally action; see Scheduler.EndCurrentAction
func (b *Battle) EndCurrentAction() error {
	return b.scheduler.EndCurrentAction()
}

// StartNewRound (re)starts the current round
func (b *Battle) StartNewRound() error {
	return b.scheduler.StartRound()
}

// ReachableTiles returns the movement area of the selected unit
func (b *Battle) ReachableTiles() ([]Position, error) {
	return b.controller.Reachable()
}

// Path previews the path of the selected unit to target; nil means no path
func (b *Battle) Path(to Position) ([]Position, error) {
	return b.controller.PathTo(to)
}

// RoundNumber returns the current round, starting at 1
func (b *Battle) RoundNumber() int {
	return b.scheduler.round
}

// ActiveFaction returns the faction whose turn it is
func (b *Battle) ActiveFaction() Faction {
	return b.scheduler.faction
}

// Phase returns the phase of the current action
func (b *Battle) Phase() Phase {
	return b.scheduler.phase
}

// AwaitingInput reports whether the battle is waiting for a player intent
func (b *Battle) AwaitingInput() bool {
	return b.scheduler.awaitingInput
}

// Started reports whether a round is in progress
func (b *Battle) Started() bool {
	return b.scheduler.started
}

// ActiveUnit returns a copy of the unit currently acting, if any
func (b *Battle) ActiveUnit() (Unit, bool) {
	if b.scheduler.active == nil {
		return Unit{}, false
	}
	return *b.scheduler.active, true
}

// SelectedUnit returns a copy of the selected unit, if any
func (b *Battle) SelectedUnit() (Unit, bool) {
	if sel := b.controller.Selected(); sel != nil {
		return *sel, true
	}
	return Unit{}, false
}

// Unit returns a copy of the unit with the given id
func (b *Battle) Unit(id UnitID) (Unit, bool) {
	u, ok := b.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Units returns copies of every unit in roster order
func (b *Battle) Units() []Unit {
	out := make([]Unit, 0, len(b.scheduler.roster))
	for _, u := range b.scheduler.roster {
		out = append(out, *u)
	}
	return out
}

// Pending returns the ids of f's units that have not acted, in turn order
func (b *Battle) Pending(f Faction) []UnitID {
	return unitIDs(b.scheduler.queue(f))
}

// Board exposes the board for read-only queries
func (b *Battle) Board() *Board {
	return b.board
}

func unitIDs(units []*Unit) []UnitID {
	ids := make([]UnitID, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	return ids
}

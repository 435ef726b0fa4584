package engine

import "fmt"

// State is a read-only JSON view of a battle for presentation layers
type State struct {
	ConfigName    string     `json:"config_name"`
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	Grid          []string   `json:"grid"`
	Round         int        `json:"round"`
	Started       bool       `json:"started"`
	ActiveFaction Faction    `json:"active_faction"`
	Phase         Phase      `json:"phase"`
	AwaitingInput bool       `json:"awaiting_input"`
	ActiveUnit    UnitID     `json:"active_unit,omitempty"`
	SelectedUnit  UnitID     `json:"selected_unit,omitempty"`
	Reachable     []Position `json:"reachable,omitempty"`
	PendingAlly   []UnitID   `json:"pending_ally"`
	PendingEnemy  []UnitID   `json:"pending_enemy"`
	Units         []Unit     `json:"units"`
}

// State builds the current presentation view
func (b *Battle) State() *State {
	st := &State{
		ConfigName:    b.config.Name,
		Width:         b.board.Width(),
		Height:        b.board.Height(),
		Grid:          b.board.Render(),
		Round:         b.scheduler.round,
		Started:       b.scheduler.started,
		ActiveFaction: b.scheduler.faction,
		Phase:         b.scheduler.phase,
		AwaitingInput: b.scheduler.awaitingInput,
		PendingAlly:   unitIDs(b.scheduler.pendingAlly),
		PendingEnemy:  unitIDs(b.scheduler.pendingEnemy),
		Units:         b.Units(),
	}
	if b.scheduler.active != nil {
		st.ActiveUnit = b.scheduler.active.ID
	}
	if sel := b.controller.Selected(); sel != nil {
		st.SelectedUnit = sel.ID
		st.Reachable, _ = b.controller.Reachable()
	}
	return st
}

// Snapshot captures everything needed to resume a battle
type Snapshot struct {
	Round         int      `json:"round"`
	Started       bool     `json:"started"`
	ActiveFaction Faction  `json:"active_faction"`
	Phase         Phase    `json:"phase"`
	AwaitingInput bool     `json:"awaiting_input"`
	ActiveUnit    UnitID   `json:"active_unit,omitempty"`
	SelectedUnit  UnitID   `json:"selected_unit,omitempty"`
	PendingAlly   []UnitID `json:"pending_ally"`
	PendingEnemy  []UnitID `json:"pending_enemy"`
	Units         []Unit   `json:"units"`
	NextID        UnitID   `json:"next_id"`
}

// Snapshot returns the current battle state as a serializable value
func (b *Battle) Snapshot() *Snapshot {
	st := b.State()
	return &Snapshot{
		Round:         st.Round,
		Started:       st.Started,
		ActiveFaction: st.ActiveFaction,
		Phase:         st.Phase,
		AwaitingInput: st.AwaitingInput,
		ActiveUnit:    st.ActiveUnit,
		SelectedUnit:  st.SelectedUnit,
		PendingAlly:   st.PendingAlly,
		PendingEnemy:  st.PendingEnemy,
		Units:         st.Units,
		NextID:        b.nextID,
	}
}

// RestoreBattle rebuilds a battle on config's board from a snapshot. The
// random source is freshly seeded rather than restored.
func RestoreBattle(config *BattleConfig, snap *Snapshot, opts ...Option) (*Battle, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	b, err := newEmptyBattle(config, opts...)
	if err != nil {
		return nil, err
	}

	for i := range snap.Units {
		u := snap.Units[i]
		u.Selected = false
		if _, dup := b.units[u.ID]; dup || u.ID == NoUnit {
			return nil, fmt.Errorf("%w: duplicate or missing unit id %d", ErrInvalidConfig, u.ID)
		}
		walkable, err := b.board.IsWalkable(u.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: unit %d: %v", ErrInvalidConfig, u.ID, err)
		}
		if occupant, _ := b.board.OccupantAt(u.Position); !walkable || occupant != nil {
			return nil, fmt.Errorf("%w: unit %d cannot stand on %s", ErrInvalidConfig, u.ID, u.Position)
		}
		if u.RemainingMoveRange > u.MoveRange {
			u.RemainingMoveRange = u.MoveRange
		}
		b.insertUnit(&u)
		if u.ID >= b.nextID {
			b.nextID = u.ID + 1
		}
	}
	if snap.NextID > b.nextID {
		b.nextID = snap.NextID
	}

	s := b.scheduler
	if snap.Round > 0 {
		s.round = snap.Round
	}
	s.started = snap.Started
	s.phase = snap.Phase
	s.awaitingInput = snap.AwaitingInput
	if snap.ActiveFaction.Valid() {
		s.faction = snap.ActiveFaction
	}

	if s.pendingAlly, err = b.lookupQueue(snap.PendingAlly, Ally); err != nil {
		return nil, err
	}
	if s.pendingEnemy, err = b.lookupQueue(snap.PendingEnemy, Enemy); err != nil {
		return nil, err
	}
	if snap.ActiveUnit != NoUnit {
		s.active = b.units[snap.ActiveUnit]
	}
	if snap.SelectedUnit != NoUnit {
		if err := b.SelectUnit(snap.SelectedUnit); err != nil {
			b.log.Warn().Err(err).Int("unit", int(snap.SelectedUnit)).Msg("dropping restored selection")
		}
	}
	return b, nil
}

func (b *Battle) lookupQueue(ids []UnitID, f Faction) ([]*Unit, error) {
	queue := make([]*Unit, 0, len(ids))
	for _, id := range ids {
		u, ok := b.units[id]
		if !ok || u.Faction != f || u.HasActed {
			return nil, fmt.Errorf("%w: unit %d cannot be queued for %s", ErrInvalidConfig, id, f)
		}
		queue = append(queue, u)
	}
	return queue, nil
}

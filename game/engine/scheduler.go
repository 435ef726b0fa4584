package engine

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

// RoundHook runs once for every queued unit when a round starts, after its
// budget has been restored.
type RoundHook func(u *Unit)

// Scheduler drives the round -> turn -> action lifecycle. It owns the unit
// roster and the two pending queues.
type Scheduler struct {
	board      *Board
	controller *Controller
	events     *dispatcher
	log        zerolog.Logger
	rng        *rand.Rand
	hook       RoundHook

	roster []*Unit

	round         int
	faction       Faction
	phase         Phase
	active        *Unit
	awaitingInput bool
	started       bool
	pendingAlly   []*Unit
	pendingEnemy  []*Unit
}

func newScheduler(board *Board, controller *Controller, events *dispatcher, rng *rand.Rand, log zerolog.Logger) *Scheduler {
	s := &Scheduler{
		board:      board,
		controller: controller,
		events:     events,
		rng:        rng,
		log:        log,
		round:      1,
		faction:    Ally,
		phase:      PhaseStart,
	}
	controller.gate = s
	return s
}

// StartRound begins the current round. It refuses to start with an empty
// roster.
func (s *Scheduler) StartRound() error {
	if len(s.roster) == 0 {
		s.log.Error().Int("round", s.round).Msg("cannot start round without units")
		return fmt.Errorf("%w: round %d", ErrNoUnitsConfigured, s.round)
	}
	s.beginRound()
	s.run()
	return nil
}

// EndCurrentAction finishes the acting Ally unit's action and advances the
// battle. The acting unit is the one that already moved this turn, else the
// selected pending ally, else the front of the Ally queue.
func (s *Scheduler) EndCurrentAction() error {
	if !s.started {
		return ErrRoundNotStarted
	}
	if s.faction != Ally || !s.awaitingInput {
		return fmt.Errorf("%w: %s turn in progress", ErrNotPlayerTurn, s.faction)
	}

	u := s.active
	if u == nil {
		if sel := s.controller.Selected(); sel != nil && s.isPending(sel) {
			u = sel
		} else if len(s.pendingAlly) > 0 {
			u = s.pendingAlly[0]
		}
	}

	if u != nil {
		s.completeAction(u)
	}
	s.run()
	return nil
}

func (s *Scheduler) beginRound() {
	_ = s.controller.SelectUnit(nil)
	s.active = nil

	s.pendingAlly = s.pendingAlly[:0:0]
	s.pendingEnemy = s.pendingEnemy[:0:0]
	for _, u := range s.roster {
		u.resetForRound()
		if u.Faction == Ally {
			s.pendingAlly = append(s.pendingAlly, u)
		} else {
			s.pendingEnemy = append(s.pendingEnemy, u)
		}
	}
	s.shuffle(s.pendingAlly)
	s.shuffle(s.pendingEnemy)

	if s.hook != nil {
		for _, u := range s.pendingAlly {
			s.hook(u)
		}
		for _, u := range s.pendingEnemy {
			s.hook(u)
		}
	}

	s.faction = Ally
	s.phase = PhaseStart
	s.awaitingInput = true
	s.started = true

	s.log.Info().
		Int("round", s.round).
		Int("allies", len(s.pendingAlly)).
		Int("enemies", len(s.pendingEnemy)).
		Msg("round started")
	s.events.emit(Event{Type: EventRoundStarted, Round: s.round})
}

func (s *Scheduler) shuffle(queue []*Unit) {
	s.rng.Shuffle(len(queue), func(i, j int) {
		queue[i], queue[j] = queue[j], queue[i]
	})
}

// run advances the battle until it needs external input or stops
func (s *Scheduler) run() {
	for {
		if len(s.pendingAlly) == 0 && len(s.pendingEnemy) == 0 {
			s.endRound()
			if !s.hasFaction(Ally) {
				// Nobody can provide input; wait for an explicit StartRound
				s.started = false
				s.awaitingInput = false
				s.phase = PhaseEnd
				return
			}
			s.beginRound()
			continue
		}

		if len(s.queue(s.faction)) == 0 {
			s.faction = s.faction.Opponent()
			continue
		}

		if s.faction == Ally {
			s.active = nil
			s.awaitingInput = true
			s.phase = PhaseMovement
			s.events.emit(Event{Type: EventTurnStarted, Faction: Ally})
			return
		}

		s.playEnemyUnit()
	}
}

func (s *Scheduler) endRound() {
	s.log.Info().Int("round", s.round).Msg("round ended")
	s.events.emit(Event{Type: EventRoundEnded, Round: s.round})
	s.round++
}

// playEnemyUnit runs the AI policy for the front of the Enemy queue: one
// random legal step, then the action ends.
func (s *Scheduler) playEnemyUnit() {
	u := s.pendingEnemy[0]
	s.active = u
	s.awaitingInput = false
	s.phase = PhaseMovement
	s.events.emit(Event{Type: EventTurnStarted, Faction: Enemy, Unit: u.ID})

	if err := s.controller.SelectUnit(u); err != nil {
		s.log.Warn().Err(err).Int("unit", int(u.ID)).Msg("AI could not select unit")
	} else {
		var moves []Position
		if u.RemainingMoveRange > 0 {
			moves = AdjacentMoves(s.board, u.Position)
		}
		if len(moves) > 0 {
			target := moves[s.rng.Intn(len(moves))]
			if err := s.controller.MoveUnit(target); err != nil {
				s.log.Warn().Err(err).Int("unit", int(u.ID)).Msg("AI move rejected")
			}
		} else {
			s.log.Debug().Int("unit", int(u.ID)).Stringer("pos", u.Position).Msg("AI unit has no legal move")
		}
	}

	s.completeAction(u)
}

// completeAction marks u as acted, removes it from its queue and hands the
// turn to the other faction.
func (s *Scheduler) completeAction(u *Unit) {
	u.HasActed = true
	if u.Faction == Ally {
		s.pendingAlly = without(s.pendingAlly, u)
	} else {
		s.pendingEnemy = without(s.pendingEnemy, u)
	}
	s.active = nil
	_ = s.controller.SelectUnit(nil)
	s.phase = PhaseEnd
	s.awaitingInput = false

	s.events.emit(Event{Type: EventTurnEnded, Faction: u.Faction, Unit: u.ID})
	s.faction = s.faction.Opponent()
}

// authorizeSelection enforces faction-turn rules for selections
func (s *Scheduler) authorizeSelection(u *Unit) error {
	if !s.started {
		return ErrRoundNotStarted
	}
	if u.Faction != s.faction {
		return fmt.Errorf("%w: unit %d belongs to %s during the %s turn", ErrInvalidSelection, u.ID, u.Faction, s.faction)
	}
	if !s.isPending(u) {
		return fmt.Errorf("%w: unit %d already acted this round", ErrInvalidSelection, u.ID)
	}
	if s.active != nil && s.active != u {
		return fmt.Errorf("%w: unit %d is mid-action", ErrInvalidSelection, s.active.ID)
	}
	return nil
}

// unitMoved binds the acting Ally unit on its first committed move. Enemy
// actions are completed by playEnemyUnit.
func (s *Scheduler) unitMoved(u *Unit) {
	if u.Faction == Ally {
		s.active = u
		s.phase = PhaseMovement
	}
}

// addUnit puts u on the roster. During a round it also joins the back of its
// faction's queue so it acts before the round ends.
func (s *Scheduler) addUnit(u *Unit) {
	s.roster = append(s.roster, u)
	if !s.started {
		return
	}
	u.resetForRound()
	if u.Faction == Ally {
		s.pendingAlly = append(s.pendingAlly, u)
	} else {
		s.pendingEnemy = append(s.pendingEnemy, u)
	}
}

// removeUnit drops u from the roster and both queues
func (s *Scheduler) removeUnit(u *Unit) {
	s.roster = without(s.roster, u)
	s.pendingAlly = without(s.pendingAlly, u)
	s.pendingEnemy = without(s.pendingEnemy, u)
	if s.active == u {
		s.active = nil
	}
	s.controller.clearIfRemoved(u)

	if s.started && s.awaitingInput && len(s.pendingAlly) == 0 {
		s.run()
	}
}

func (s *Scheduler) queue(f Faction) []*Unit {
	if f == Ally {
		return s.pendingAlly
	}
	return s.pendingEnemy
}

func (s *Scheduler) isPending(u *Unit) bool {
	for _, q := range s.queue(u.Faction) {
		if q == u {
			return true
		}
	}
	return false
}

func (s *Scheduler) hasFaction(f Faction) bool {
	for _, u := range s.roster {
		if u.Faction == f {
			return true
		}
	}
	return false
}

// without returns a new slice holding every unit of queue except u
func without(queue []*Unit, u *Unit) []*Unit {
	out := make([]*Unit, 0, len(queue))
	for _, q := range queue {
		if q != u {
			out = append(out, q)
		}
	}
	return out
}

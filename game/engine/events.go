package engine

// EventType names a notification emitted to presentation layers
type EventType string

const (
	EventUnitSelected   EventType = "unit_selected"
	EventUnitDeselected EventType = "unit_deselected"
	EventUnitMoved      EventType = "unit_moved"
	EventTurnStarted    EventType = "turn_started"
	EventTurnEnded      EventType = "turn_ended"
	EventRoundStarted   EventType = "round_started"
	EventRoundEnded     EventType = "round_ended"
)

// Event is a discrete notification. Fields that do not apply to the event
// type are left zero.
type Event struct {
	Type    EventType `json:"type"`
	Round   int       `json:"round"`
	Faction Faction   `json:"faction,omitempty"`
	Unit    UnitID    `json:"unit,omitempty"`
	From    *Position `json:"from,omitempty"`
	To      *Position `json:"to,omitempty"`
}

// Listener receives events synchronously, in emission order. Listeners may
// query the battle but must not issue intents from inside the callback.
type Listener func(Event)

type dispatcher struct {
	listeners []Listener
	round     func() int
}

func (d *dispatcher) subscribe(l Listener) {
	if l != nil {
		d.listeners = append(d.listeners, l)
	}
}

func (d *dispatcher) emit(ev Event) {
	if d.round != nil && ev.Round == 0 {
		ev.Round = d.round()
	}
	for _, l := range d.listeners {
		l(ev)
	}
}

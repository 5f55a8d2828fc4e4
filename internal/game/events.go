package game

// EventType names a hand event
type EventType string

const (
	EventHandStart    EventType = "hand_start"
	EventPlayerAction EventType = "player_action"
	EventStreetChange EventType = "street_change"
	EventHandEnd      EventType = "hand_end"
)

func (et EventType) String() string { return string(et) }

// Event is something that happened during a hand. Events are emitted in the
// order they happen, while the table is being changed.
type Event interface {
	EventType() EventType
	Hand() int
}

// EventSink receives table events. Sinks run on the goroutine that changes
// the table and must not call back into it.
type EventSink func(Event)

// Stack is a player's chips at some point in a hand
type Stack struct {
	Identity string `json:"identity"`
	Seat     int    `json:"seat"`
	Chips    int    `json:"chips"`
}

// HandStartEvent is emitted once blinds are posted. Stacks are taken before
// the blinds.
type HandStartEvent struct {
	HandNumber int     `json:"hand_number"`
	Dealer     string  `json:"dealer"`
	SmallBlind int     `json:"small_blind"`
	BigBlind   int     `json:"big_blind"`
	Stacks     []Stack `json:"stacks"`
}

func (e HandStartEvent) EventType() EventType { return EventHandStart }
func (e HandStartEvent) Hand() int            { return e.HandNumber }

// PlayerActionEvent is emitted for every applied decision, including folds
// forced by a timeout or by leaving mid-hand. Amount is the chips the action
// put in; Bet is the player's total for the street afterwards.
type PlayerActionEvent struct {
	HandNumber int    `json:"hand_number"`
	Identity   string `json:"identity"`
	Street     string `json:"street"`
	Action     string `json:"action"`
	Amount     int    `json:"amount"`
	Bet        int    `json:"bet"`
	Pot        int    `json:"pot"`
	AllIn      bool   `json:"all_in,omitempty"`
	Reason     string `json:"reason,omitempty"` // "timeout" or "left"
}

func (e PlayerActionEvent) EventType() EventType { return EventPlayerAction }
func (e PlayerActionEvent) Hand() int            { return e.HandNumber }

// StreetChangeEvent is emitted when community cards are turned, including
// streets run out with nobody left to bet.
type StreetChangeEvent struct {
	HandNumber int      `json:"hand_number"`
	Street     string   `json:"street"`
	Board      []string `json:"board"`
	Pot        int      `json:"pot"`
}

func (e StreetChangeEvent) EventType() EventType { return EventStreetChange }
func (e StreetChangeEvent) Hand() int            { return e.HandNumber }

// HandEndEvent is emitted after a hand settles. Stacks covers every player
// dealt in, including those whose seat was released.
type HandEndEvent struct {
	Result HandResult `json:"result"`
	Stacks []Stack    `json:"stacks"`
}

func (e HandEndEvent) EventType() EventType { return EventHandEnd }
func (e HandEndEvent) Hand() int            { return e.Result.HandNumber }

// Subscribe adds a sink for the events of every later hand
func (t *Table) Subscribe(sink EventSink) {
	t.sinks = append(t.sinks, sink)
}

func (t *Table) emit(e Event) {
	for _, sink := range t.sinks {
		sink(e)
	}
}

func (t *Table) stacks(include func(*Player) bool, chips func(*Player) int) []Stack {
	var stacks []Stack
	for _, p := range t.players {
		if include(p) {
			stacks = append(stacks, Stack{Identity: p.Identity, Seat: p.Seat, Chips: chips(p)})
		}
	}
	return stacks
}

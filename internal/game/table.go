package game

import (
	"fmt"
	"io"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtable/internal/deck"
)

// Status is the table lifecycle state
type Status int

const (
	Waiting Status = iota
	Started
)

func (s Status) String() string {
	if s == Started {
		return "started"
	}
	return "waiting"
}

// TableConfig holds the stakes and seat limits of a table
type TableConfig struct {
	ID         string
	Name       string
	SmallBlind int
	BigBlind   int
	MinPlayers int
	MaxPlayers int
	MinBuyIn   int
	MaxBuyIn   int
}

// DefaultTableConfig returns the default stakes: 50/100 blinds, four to ten
// players, buy-ins between 100 and 1000.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Name:       "main",
		SmallBlind: 50,
		BigBlind:   100,
		MinPlayers: 4,
		MaxPlayers: 10,
		MinBuyIn:   100,
		MaxBuyIn:   1000,
	}
}

// Validate checks that the config is playable
func (c TableConfig) Validate() error {
	if c.SmallBlind <= 0 || c.BigBlind <= 0 {
		return fmt.Errorf("blinds must be positive, got %d/%d", c.SmallBlind, c.BigBlind)
	}
	if c.SmallBlind > c.BigBlind {
		return fmt.Errorf("small blind %d exceeds big blind %d", c.SmallBlind, c.BigBlind)
	}
	if c.MinPlayers < 2 {
		return fmt.Errorf("min players must be at least 2, got %d", c.MinPlayers)
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("max players %d below min players %d", c.MaxPlayers, c.MinPlayers)
	}
	// Two hole cards each plus five board cards and three burns.
	if 2*c.MaxPlayers+8 > deck.Size {
		return fmt.Errorf("max players %d cannot be dealt from one deck", c.MaxPlayers)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("invalid buy-in range %d-%d", c.MinBuyIn, c.MaxBuyIn)
	}
	return nil
}

// TableOption configures a Table
type TableOption func(*Table)

// WithEvaluator sets the hand evaluator used at showdown
func WithEvaluator(e HandEvaluator) TableOption {
	return func(t *Table) {
		t.evaluator = e
	}
}

// WithLogger sets the table logger
func WithLogger(logger *log.Logger) TableOption {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithDealer sets the dealer index the first hand rotates from
func WithDealer(dealer int) TableOption {
	return func(t *Table) {
		t.dealer = dealer
	}
}

// WithHandNumber continues hand numbering after n, for restored tables
func WithHandNumber(n int) TableOption {
	return func(t *Table) {
		t.handNumber = n
	}
}

// Table is a single poker table: its roster, dealer position and the hand in
// progress. A Table is not safe for concurrent use; callers serialize access.
type Table struct {
	config     TableConfig
	status     Status
	dealer     int
	players    []*Player
	round      *Round
	handNumber int
	lastResult *HandResult

	rng       *rand.Rand
	evaluator HandEvaluator
	logger    *log.Logger
	sinks     []EventSink
}

// NewTable creates an empty table in the waiting state
func NewTable(rng *rand.Rand, config TableConfig, opts ...TableOption) *Table {
	t := &Table{
		config:    config,
		status:    Waiting,
		players:   make([]*Player, 0, config.MaxPlayers),
		rng:       rng,
		evaluator: PokerEvaluator{},
		logger:    log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("table", config.Name)
	return t
}

// Config returns the table configuration
func (t *Table) Config() TableConfig { return t.config }

// Status returns the lifecycle state
func (t *Table) Status() Status { return t.status }

// Dealer returns the dealer's seat index
func (t *Table) Dealer() int { return t.dealer }

// HandNumber returns the number of hands dealt so far
func (t *Table) HandNumber() int { return t.handNumber }

// LastResult returns the outcome of the most recently settled hand
func (t *Table) LastResult() *HandResult { return t.lastResult }

// NumPlayers returns the number of occupied seats
func (t *Table) NumPlayers() int { return len(t.players) }

// Pot returns the chips committed in the running hand
func (t *Table) Pot() int {
	if t.round == nil {
		return 0
	}
	return t.round.pot
}

// Player returns the seated player with identity, or nil
func (t *Table) Player(identity string) *Player {
	if i := t.indexOf(identity); i >= 0 {
		return t.players[i]
	}
	return nil
}

// IsSeated reports whether identity holds a seat
func (t *Table) IsSeated(identity string) bool { return t.indexOf(identity) >= 0 }

// Players returns the public view of every seat
func (t *Table) Players() []SeatView { return t.Snapshot("").Seats }

// Identities returns seated identities in seat order
func (t *Table) Identities() []string {
	ids := make([]string, len(t.players))
	for i, p := range t.players {
		ids[i] = p.Identity
	}
	return ids
}

// TotalChips returns every seated stack plus the pot
func (t *Table) TotalChips() int {
	total := t.Pot()
	for _, p := range t.players {
		total += p.Chips
	}
	return total
}

// Outcome reports the side effects of a table mutation
type Outcome struct {
	Started      bool // A hand was dealt
	HandComplete bool // The running hand was settled
}

// Join seats identity with buyIn chips. A buyIn of zero takes the maximum.
// Joining again while seated returns the existing player unchanged.
// Players who join mid-hand are dealt in from the next hand.
func (t *Table) Join(identity string, buyIn int) (*Player, error) {
	if identity == "" {
		return nil, validationError(ErrInvalidIdentity, "identity must not be empty")
	}
	if p := t.Player(identity); p != nil {
		return p, nil
	}
	if len(t.players) >= t.config.MaxPlayers {
		return nil, capacityError(ErrTableFull, "all %d seats taken", t.config.MaxPlayers)
	}
	if buyIn == 0 {
		buyIn = t.config.MaxBuyIn
	}
	if buyIn < t.config.MinBuyIn || buyIn > t.config.MaxBuyIn {
		return nil, validationError(ErrInvalidBuyIn, "buy-in %d outside %d-%d", buyIn, t.config.MinBuyIn, t.config.MaxBuyIn)
	}

	p := NewPlayer(identity, buyIn)
	p.Seat = len(t.players)
	t.players = append(t.players, p)

	t.logger.Debug("player joined", "player", identity, "seat", p.Seat, "chips", buyIn)
	return p, nil
}

// Restore seats a player with a persisted stack, bypassing buy-in limits.
// Only valid while no hand is running.
func (t *Table) Restore(identity string, chips int) error {
	if t.status == Started {
		return validationError(ErrInvalidAction, "cannot restore seats during a hand")
	}
	if identity == "" {
		return validationError(ErrInvalidIdentity, "identity must not be empty")
	}
	if chips <= 0 || t.Player(identity) != nil {
		return nil
	}
	if len(t.players) >= t.config.MaxPlayers {
		return capacityError(ErrTableFull, "all %d seats taken", t.config.MaxPlayers)
	}
	p := NewPlayer(identity, chips)
	p.Seat = len(t.players)
	t.players = append(t.players, p)
	return nil
}

// Leave removes identity from the table. A player dealt into the running hand
// folds immediately, forfeiting chips already committed, and the seat is
// removed when the hand settles. Leaving when not seated is a no-op.
func (t *Table) Leave(identity string) (Outcome, error) {
	idx := t.indexOf(identity)
	if idx < 0 {
		return Outcome{}, nil
	}
	p := t.players[idx]

	if t.round == nil || !p.InHand {
		t.removeAt(idx)
		t.logger.Debug("player left", "player", identity)
		return Outcome{}, nil
	}
	if p.LeavePending {
		return Outcome{}, nil
	}

	p.LeavePending = true
	p.Folded = true
	p.Acted = true
	t.logger.Debug("player left mid-hand", "player", identity, "hand", t.handNumber)
	t.emitAction(p, Fold, 0, "left")

	start := t.round.actor
	if start == idx {
		start = idx + 1
	}
	complete, err := t.progress(start)
	return Outcome{HandComplete: complete}, err
}

// MaybeStartHand deals a new hand when the table is waiting with enough
// players. It does nothing otherwise.
func (t *Table) MaybeStartHand() (Outcome, error) {
	if t.status == Started || len(t.players) < t.config.MinPlayers {
		return Outcome{}, nil
	}
	return t.StartHand()
}

// StartHand deals a new hand. It is a no-op while a hand is running and
// fails with ErrInsufficientPlayers when too few players are seated.
func (t *Table) StartHand() (Outcome, error) {
	if t.status == Started {
		return Outcome{}, nil
	}
	n := len(t.players)
	if n < t.config.MinPlayers || n < 2 {
		return Outcome{}, capacityError(ErrInsufficientPlayers, "%d seated, %d required", n, t.config.MinPlayers)
	}

	round := newRound(deck.New(t.rng), t.config.BigBlind)
	dealer := (t.dealer + 1) % n

	// Hole cards go one at a time, starting left of the dealer.
	hole := make([][]deck.Card, n)
	for range 2 {
		for i := 1; i <= n; i++ {
			card, err := round.deck.Deal()
			if err != nil {
				return Outcome{}, exhaustedError("dealing hole cards", err)
			}
			seat := (dealer + i) % n
			hole[seat] = append(hole[seat], card)
		}
	}

	for i, p := range t.players {
		p.resetForHand()
		p.InHand = true
		p.HoleCards = hole[i]
	}
	t.dealer = dealer
	t.round = round
	t.status = Started
	t.handNumber++

	sb := t.players[(t.dealer+1)%n]
	bb := t.players[(t.dealer+2)%n]
	t.put(sb, t.config.SmallBlind)
	t.put(bb, t.config.BigBlind)
	round.currentBet = max(sb.Bet, bb.Bet)

	t.emit(HandStartEvent{
		HandNumber: t.handNumber,
		Dealer:     t.players[t.dealer].Identity,
		SmallBlind: t.config.SmallBlind,
		BigBlind:   t.config.BigBlind,
		Stacks: t.stacks(func(p *Player) bool { return p.InHand },
			func(p *Player) int { return p.Chips + p.TotalBet }),
	})

	t.logger.Info("hand started",
		"hand", t.handNumber,
		"players", n,
		"dealer", t.players[t.dealer].Identity,
		"small_blind", sb.Identity,
		"big_blind", bb.Identity)

	complete, err := t.progress(t.dealer + 3)
	return Outcome{Started: true, HandComplete: complete}, err
}

// Act applies a decision from identity, who must be the player to act
func (t *Table) Act(identity string, d Decision) (Outcome, error) {
	return t.act(identity, d, "")
}

func (t *Table) act(identity string, d Decision, reason string) (Outcome, error) {
	if t.round == nil {
		return Outcome{}, validationError(ErrNoActiveHand, "table is %s", t.status)
	}
	idx := t.indexOf(identity)
	if idx < 0 {
		return Outcome{}, validationError(ErrNotSeated, "%s is not at this table", identity)
	}
	if idx != t.round.actor {
		return Outcome{}, validationError(ErrNotYourTurn, "action is on %s", t.players[t.round.actor].Identity)
	}

	p := t.players[idx]
	before := p.Bet
	if err := t.apply(p, d); err != nil {
		return Outcome{}, err
	}
	p.Acted = true
	t.emitAction(p, d.Action, p.Bet-before, reason)

	t.logger.Debug("player acted",
		"player", identity,
		"action", d.String(),
		"street", t.round.street,
		"pot", t.round.pot)

	complete, err := t.progress(idx + 1)
	return Outcome{HandComplete: complete}, err
}

func (t *Table) emitAction(p *Player, action Action, amount int, reason string) {
	t.emit(PlayerActionEvent{
		HandNumber: t.handNumber,
		Identity:   p.Identity,
		Street:     t.round.street.String(),
		Action:     action.String(),
		Amount:     amount,
		Bet:        p.Bet,
		Pot:        t.round.pot,
		AllIn:      p.AllIn,
		Reason:     reason,
	})
}

// TurnToken identifies one turn of one hand. Timers armed for a turn compare
// tokens so a stale timeout cannot fold a later decision.
type TurnToken struct {
	Hand int
	Turn int
}

// Turn returns the player to act and the token of the current turn
func (t *Table) Turn() (string, TurnToken, bool) {
	if t.round == nil || t.round.actor < 0 {
		return "", TurnToken{}, false
	}
	return t.players[t.round.actor].Identity, TurnToken{Hand: t.handNumber, Turn: t.round.turn}, true
}

// Timeout folds identity if token still names the current turn. It reports
// whether the fold was applied.
func (t *Table) Timeout(identity string, token TurnToken) (Outcome, bool, error) {
	current, tok, ok := t.Turn()
	if !ok || current != identity || tok != token {
		return Outcome{}, false, nil
	}
	t.logger.Info("action timed out", "player", identity, "hand", t.handNumber)
	outcome, err := t.act(identity, Decision{Action: Fold}, "timeout")
	return outcome, err == nil, err
}

// LegalActions returns the options open to identity, or nil when it is not
// their turn
func (t *Table) LegalActions(identity string) []ActionOption {
	current, _, ok := t.Turn()
	if !ok || current != identity {
		return nil
	}
	return t.round.legalActions(t.players[t.round.actor], t.config.BigBlind)
}

func (t *Table) indexOf(identity string) int {
	for i, p := range t.players {
		if p.Identity == identity {
			return i
		}
	}
	return -1
}

func (t *Table) removeAt(idx int) {
	t.players = append(t.players[:idx], t.players[idx+1:]...)
	for i, p := range t.players {
		p.Seat = i
	}
	if idx < t.dealer {
		t.dealer--
	}
	if t.round != nil && idx < t.round.actor {
		t.round.actor--
	}
	if len(t.players) > 0 {
		t.dealer %= len(t.players)
	} else {
		t.dealer = 0
	}
}

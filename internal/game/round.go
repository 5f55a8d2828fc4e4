package game

import (
	"slices"

	"github.com/lox/holdemtable/internal/deck"
)

// Round is the state of the hand in progress
type Round struct {
	street     Street
	deck       *deck.Deck
	board      []deck.Card
	burned     []deck.Card
	pot        int
	currentBet int
	minRaise   int
	actor      int // Seat index of the player to act, -1 when nobody can
	turn       int // Incremented every time the turn moves
}

func newRound(d *deck.Deck, bigBlind int) *Round {
	return &Round{
		street:   Preflop,
		deck:     d,
		board:    make([]deck.Card, 0, 5),
		minRaise: bigBlind,
		actor:    -1,
	}
}

// Street returns the current betting round
func (r *Round) Street() Street { return r.street }

// Board returns the community cards dealt so far
func (r *Round) Board() []deck.Card { return slices.Clone(r.board) }

// Winner is a player's share of a settled hand
type Winner struct {
	Identity  string   `json:"identity"`
	Seat      int      `json:"seat"`
	Amount    int      `json:"amount"`
	Hand      string   `json:"hand,omitempty"`
	HoleCards []string `json:"hole_cards,omitempty"`
}

// HandResult records how a hand was settled
type HandResult struct {
	HandNumber int      `json:"hand_number"`
	Pot        int      `json:"pot"`
	Board      []string `json:"board"`
	Showdown   bool     `json:"showdown"`
	Winners    []Winner `json:"winners"`
	// Released lists seats given up when the hand settled, with the chips
	// each player took with them.
	Released []ReleasedSeat `json:"released,omitempty"`
}

// ReleasedSeat is a seat removed at settlement, either because its player
// left during the hand or because they ran out of chips.
type ReleasedSeat struct {
	Identity string `json:"identity"`
	Seat     int    `json:"seat"`
	Chips    int    `json:"chips"`
	Left     bool   `json:"left"`
}

// progress moves the hand forward after any change to it. The next actor is
// searched for clockwise from seat start. It returns true once the hand has
// been settled.
func (t *Table) progress(start int) (bool, error) {
	r := t.round
	for {
		if t.countContenders() <= 1 {
			t.awardUncontested()
			t.settle()
			return true, nil
		}

		if !t.bettingClosed() {
			next := t.nextToAct(start)
			if next != r.actor {
				r.turn++
			}
			r.actor = next
			return false, nil
		}

		r.actor = -1
		if t.countLive() <= 1 || r.street == River {
			if err := t.showdown(); err != nil {
				return false, err
			}
			t.settle()
			return true, nil
		}

		if err := t.nextStreet(); err != nil {
			return false, err
		}
		start = t.dealer + 1
	}
}

// bettingClosed reports whether no live player still owes an action on the
// current street.
func (t *Table) bettingClosed() bool {
	r := t.round
	var live []*Player
	for _, p := range t.players {
		if p.IsLive() {
			live = append(live, p)
		}
	}

	switch len(live) {
	case 0:
		return true
	case 1:
		// Nobody left to bet against. The player only acts to match a bet.
		return live[0].Bet >= r.currentBet
	}
	for _, p := range live {
		if !p.Acted || p.Bet != r.currentBet {
			return false
		}
	}
	return true
}

func (t *Table) needsAction(p *Player) bool {
	return p.IsLive() && (!p.Acted || p.Bet < t.round.currentBet)
}

func (t *Table) nextToAct(start int) int {
	n := len(t.players)
	for i := range n {
		idx := (start + i) % n
		if t.needsAction(t.players[idx]) {
			return idx
		}
	}
	return -1
}

func (t *Table) countContenders() int {
	count := 0
	for _, p := range t.players {
		if p.IsContending() {
			count++
		}
	}
	return count
}

func (t *Table) countLive() int {
	count := 0
	for _, p := range t.players {
		if p.IsLive() {
			count++
		}
	}
	return count
}

// dealStreet burns one card and turns the next street's community cards.
func (t *Table) dealStreet() error {
	r := t.round
	burn, err := r.deck.Deal()
	if err != nil {
		return exhaustedError("burning before "+(r.street+1).String(), err)
	}
	count := 1
	if r.street == Preflop {
		count = 3
	}
	cards, err := r.deck.DealN(count)
	if err != nil {
		return exhaustedError("dealing "+(r.street+1).String(), err)
	}
	r.burned = append(r.burned, burn)
	r.board = append(r.board, cards...)
	r.street++
	t.emit(StreetChangeEvent{
		HandNumber: t.handNumber,
		Street:     r.street.String(),
		Board:      deck.Tokens(r.board),
		Pot:        r.pot,
	})
	return nil
}

func (t *Table) nextStreet() error {
	if err := t.dealStreet(); err != nil {
		return err
	}
	r := t.round
	for _, p := range t.players {
		p.resetForStreet()
	}
	r.currentBet = 0
	r.minRaise = t.config.BigBlind

	t.logger.Debug("street dealt",
		"street", r.street,
		"board", deck.Tokens(r.board),
		"pot", r.pot)
	return nil
}

// clockwise returns players ordered from the seat after the dealer
func (t *Table) clockwise() []*Player {
	n := len(t.players)
	ordered := make([]*Player, 0, n)
	for i := 1; i <= n; i++ {
		ordered = append(ordered, t.players[(t.dealer+i)%n])
	}
	return ordered
}

func (t *Table) awardUncontested() {
	r := t.round
	var winner *Player
	for _, p := range t.players {
		if p.IsContending() {
			winner = p
			break
		}
	}

	result := &HandResult{
		HandNumber: t.handNumber,
		Pot:        r.pot,
		Board:      deck.Tokens(r.board),
	}
	if winner != nil {
		winner.Chips += r.pot
		result.Winners = []Winner{{Identity: winner.Identity, Seat: winner.Seat, Amount: r.pot}}
	}
	r.pot = 0
	t.lastResult = result

	t.logger.Info("hand won uncontested", "hand", t.handNumber, "winner", winnerName(winner), "pot", result.Pot)
}

// showdown runs out the board, ranks every contender and pays each pot to
// the best hands eligible for it.
func (t *Table) showdown() error {
	r := t.round
	for r.street < River {
		if err := t.dealStreet(); err != nil {
			return err
		}
	}

	ranks := make(map[*Player]HandRank)
	for _, p := range t.players {
		if !p.IsContending() {
			continue
		}
		rank, err := t.evaluator.Evaluate(p.HoleCards, r.board)
		if err != nil {
			return exhaustedError("evaluating "+p.Identity, err)
		}
		ranks[p] = rank
	}
	r.street = Showdown

	result := &HandResult{
		HandNumber: t.handNumber,
		Pot:        r.pot,
		Board:      deck.Tokens(r.board),
		Showdown:   true,
	}
	won := make(map[*Player]int)
	order := t.clockwise()

	for _, pot := range buildPots(t.players) {
		var best int
		var winners []*Player
		for _, p := range order {
			if !slices.Contains(pot.Eligible, p.Seat) {
				continue
			}
			score := ranks[p].Score
			switch {
			case len(winners) == 0 || score > best:
				best = score
				winners = []*Player{p}
			case score == best:
				winners = append(winners, p)
			}
		}
		for p, amount := range splitPot(pot.Amount, winners) {
			won[p] += amount
		}
	}

	for _, p := range order {
		amount, ok := won[p]
		if !ok {
			continue
		}
		p.Chips += amount
		result.Winners = append(result.Winners, Winner{
			Identity:  p.Identity,
			Seat:      p.Seat,
			Amount:    amount,
			Hand:      ranks[p].Description,
			HoleCards: deck.Tokens(p.HoleCards),
		})
		t.logger.Info("pot awarded", "hand", t.handNumber, "winner", p.Identity, "amount", amount, "hand_rank", ranks[p].Description)
	}

	r.pot = 0
	t.lastResult = result
	return nil
}

// settle ends the hand: seats of departed and busted players are released
// and the table returns to waiting.
func (t *Table) settle() {
	var leaving []int
	var released []ReleasedSeat
	for i, p := range t.players {
		if p.LeavePending || p.Chips == 0 {
			leaving = append(leaving, i)
			released = append(released, ReleasedSeat{Identity: p.Identity, Seat: p.Seat, Chips: p.Chips, Left: p.LeavePending})
		}
	}
	end := HandEndEvent{
		Stacks: t.stacks(func(p *Player) bool { return p.InHand },
			func(p *Player) int { return p.Chips }),
	}
	if t.lastResult != nil {
		t.lastResult.Released = released
		end.Result = *t.lastResult
	}

	t.round = nil
	t.status = Waiting
	for i := len(leaving) - 1; i >= 0; i-- {
		p := t.players[leaving[i]]
		t.logger.Debug("releasing seat", "player", p.Identity, "chips", p.Chips, "left", p.LeavePending)
		t.removeAt(leaving[i])
	}
	for _, p := range t.players {
		p.clearHand()
	}
	t.emit(end)
}

func winnerName(p *Player) string {
	if p == nil {
		return ""
	}
	return p.Identity
}

package game

import (
	"github.com/lox/holdemtable/internal/deck"
)

// SeatView is one seat as seen by a particular viewer. Hole cards are only
// filled in for the viewer's own seat.
type SeatView struct {
	Seat         int      `json:"seat"`
	Identity     string   `json:"identity"`
	Chips        int      `json:"chips"`
	Bet          int      `json:"bet"`
	TotalBet     int      `json:"total_bet"`
	InHand       bool     `json:"in_hand"`
	Folded       bool     `json:"folded"`
	AllIn        bool     `json:"all_in"`
	LeavePending bool     `json:"leave_pending,omitempty"`
	CardCount    int      `json:"card_count"`
	HoleCards    []string `json:"hole_cards,omitempty"`
}

// TableSnapshot is a point-in-time view of a table. Seq is stamped by the
// coordinator that owns the table.
type TableSnapshot struct {
	TableID    string `json:"table_id"`
	Name       string `json:"name"`
	Seq        uint64 `json:"seq"`
	Status     string `json:"status"`
	SmallBlind int    `json:"small_blind"`
	BigBlind   int    `json:"big_blind"`
	MinPlayers int    `json:"min_players"`
	MaxPlayers int    `json:"max_players"`
	MinBuyIn   int    `json:"min_buy_in"`
	MaxBuyIn   int    `json:"max_buy_in"`

	HandNumber int        `json:"hand_number"`
	Dealer     int        `json:"dealer"`
	Street     string     `json:"street,omitempty"`
	Board      []string   `json:"board,omitempty"`
	Pot        int        `json:"pot"`
	CurrentBet int        `json:"current_bet"`
	Actor      string     `json:"actor,omitempty"`
	ActorSeat  int        `json:"actor_seat"`
	Turn       TurnToken  `json:"turn"`
	Seats      []SeatView `json:"seats"`

	// Viewer is the identity the snapshot was rendered for, empty for the
	// public view. Options lists the viewer's legal actions on their turn.
	Viewer  string         `json:"viewer,omitempty"`
	Options []ActionOption `json:"options,omitempty"`

	LastResult *HandResult `json:"last_result,omitempty"`
}

// Snapshot renders the table for viewer. An empty viewer gets the public view
// with every hole card hidden.
func (t *Table) Snapshot(viewer string) TableSnapshot {
	s := TableSnapshot{
		TableID:    t.config.ID,
		Name:       t.config.Name,
		Status:     t.status.String(),
		SmallBlind: t.config.SmallBlind,
		BigBlind:   t.config.BigBlind,
		MinPlayers: t.config.MinPlayers,
		MaxPlayers: t.config.MaxPlayers,
		MinBuyIn:   t.config.MinBuyIn,
		MaxBuyIn:   t.config.MaxBuyIn,
		HandNumber: t.handNumber,
		Dealer:     t.dealer,
		ActorSeat:  -1,
		Seats:      make([]SeatView, 0, len(t.players)),
		Viewer:     viewer,
		LastResult: t.lastResult,
	}

	if r := t.round; r != nil {
		s.Street = r.street.String()
		s.Board = deck.Tokens(r.board)
		s.Pot = r.pot
		s.CurrentBet = r.currentBet
		if identity, token, ok := t.Turn(); ok {
			s.Actor = identity
			s.ActorSeat = r.actor
			s.Turn = token
		}
	}

	for _, p := range t.players {
		view := SeatView{
			Seat:         p.Seat,
			Identity:     p.Identity,
			Chips:        p.Chips,
			Bet:          p.Bet,
			TotalBet:     p.TotalBet,
			InHand:       p.InHand,
			Folded:       p.Folded,
			AllIn:        p.AllIn,
			LeavePending: p.LeavePending,
			CardCount:    len(p.HoleCards),
		}
		if viewer != "" && p.Identity == viewer {
			view.HoleCards = deck.Tokens(p.HoleCards)
		}
		s.Seats = append(s.Seats, view)
	}

	if viewer != "" {
		s.Options = t.LegalActions(viewer)
	}
	return s
}

// Seat returns the view of identity's seat
func (s TableSnapshot) Seat(identity string) (SeatView, bool) {
	for _, seat := range s.Seats {
		if seat.Identity == identity {
			return seat, true
		}
	}
	return SeatView{}, false
}

// TotalChips returns every stack plus the pot
func (s TableSnapshot) TotalChips() int {
	total := s.Pot
	for _, seat := range s.Seats {
		total += seat.Chips
	}
	return total
}

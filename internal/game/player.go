package game

import (
	"github.com/lox/holdemtable/internal/deck"
)

// Player represents a seated player. The owning Table is the only writer.
type Player struct {
	Seat      int
	Identity  string
	Chips     int
	HoleCards []deck.Card
	Folded    bool
	AllIn     bool
	Acted     bool // Has acted on the current street
	Bet       int  // Chips committed on the current street
	TotalBet  int  // Chips committed in the hand

	// InHand is set for players dealt into the running hand. Players who
	// join mid-hand wait with InHand unset until the next deal.
	InHand bool

	// LeavePending marks a player who left mid-hand. The seat is removed
	// once the hand is settled.
	LeavePending bool
}

// NewPlayer creates a player with the given stack
func NewPlayer(identity string, chips int) *Player {
	return &Player{
		Identity: identity,
		Chips:    chips,
	}
}

// IsLive returns true if the player can still take betting actions
func (p *Player) IsLive() bool {
	return p.InHand && !p.Folded && !p.AllIn
}

// IsContending returns true if the player is still eligible for the pot
func (p *Player) IsContending() bool {
	return p.InHand && !p.Folded
}

func (p *Player) resetForHand() {
	p.HoleCards = make([]deck.Card, 0, 2)
	p.Folded = false
	p.AllIn = false
	p.Acted = false
	p.Bet = 0
	p.TotalBet = 0
	p.InHand = false
}

func (p *Player) clearHand() {
	p.resetForHand()
	p.HoleCards = nil
}

func (p *Player) resetForStreet() {
	p.Bet = 0
	p.Acted = false
}

// commit moves up to amount chips from the stack into the player's bets and
// returns the amount moved. Committing the whole stack puts the player all-in.
func (p *Player) commit(amount int) int {
	if amount >= p.Chips {
		amount = p.Chips
		p.AllIn = true
	}
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	return amount
}

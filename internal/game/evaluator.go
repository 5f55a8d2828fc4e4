package game

import (
	"fmt"

	"github.com/paulhankin/poker"

	"github.com/lox/holdemtable/internal/deck"
)

// HandRank is the strength of a seven-card hand. Higher scores win and equal
// scores split.
type HandRank struct {
	Score       int
	Description string
}

// HandEvaluator ranks a player's best five-card hand from two hole cards and
// the five-card board.
type HandEvaluator interface {
	Evaluate(hole, board []deck.Card) (HandRank, error)
}

// PokerEvaluator ranks hands with github.com/paulhankin/poker.
type PokerEvaluator struct{}

// Evaluate implements HandEvaluator
func (PokerEvaluator) Evaluate(hole, board []deck.Card) (HandRank, error) {
	if len(hole) != 2 || len(board) != 5 {
		return HandRank{}, fmt.Errorf("evaluate: need 2 hole cards and 5 board cards, got %d and %d", len(hole), len(board))
	}

	var cards [7]poker.Card
	for i, c := range append(append(make([]deck.Card, 0, 7), hole...), board...) {
		pc, err := toPokerCard(c)
		if err != nil {
			return HandRank{}, err
		}
		cards[i] = pc
	}

	desc, err := poker.Describe(cards[:])
	if err != nil {
		return HandRank{}, fmt.Errorf("evaluate: %w", err)
	}
	return HandRank{
		Score:       int(poker.Eval7(&cards)),
		Description: desc,
	}, nil
}

// pokerSuits maps deck suits onto the poker package's club, diamond, heart,
// spade ordering.
var pokerSuits = map[deck.Suit]poker.Suit{
	deck.Clubs:    poker.Suit(0),
	deck.Diamonds: poker.Suit(1),
	deck.Hearts:   poker.Suit(2),
	deck.Spades:   poker.Suit(3),
}

func toPokerCard(c deck.Card) (poker.Card, error) {
	suit, ok := pokerSuits[c.Suit]
	if !ok {
		var none poker.Card
		return none, fmt.Errorf("evaluate: invalid suit in %v", c)
	}

	// The poker package counts aces low: ace is 1, king is 13.
	rank := poker.Rank(c.Rank)
	if c.Rank == deck.Ace {
		rank = poker.Rank(1)
	}
	return poker.MakeCard(suit, rank)
}

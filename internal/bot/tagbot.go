package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/game"
)

// HandStrength represents the relative strength of a hand
type HandStrength int

const (
	VeryWeak HandStrength = iota
	Weak
	Medium
	Strong
	VeryStrong
)

func (hs HandStrength) String() string {
	switch hs {
	case VeryWeak:
		return "very weak"
	case Weak:
		return "weak"
	case Medium:
		return "medium"
	case Strong:
		return "strong"
	case VeryStrong:
		return "very strong"
	}
	return "unknown"
}

// TAGBot plays tight and aggressive: it folds weak holdings to a bet, calls
// with medium ones and bets strong ones.
type TAGBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewTAGBot creates a new TAGBot instance
func NewTAGBot(rng *rand.Rand, logger *log.Logger) *TAGBot {
	return &TAGBot{rng: rng, logger: logger}
}

func (b *TAGBot) Decide(view game.TableSnapshot) game.Decision {
	seat, ok := view.Seat(view.Viewer)
	hole, err := parseTokens(seat.HoleCards)
	if !ok || err != nil || len(hole) != 2 {
		return choose(view.Options, game.Check)
	}
	board, err := parseTokens(view.Board)
	if err != nil {
		return choose(view.Options, game.Check)
	}

	strength := Strength(hole, board)
	b.logger.Debug("deciding", "player", view.Viewer, "street", view.Street, "strength", strength)

	pot := max(view.Pot, view.BigBlind)
	switch strength {
	case VeryStrong:
		return aggress(view.Options, view.CurrentBet+pot, game.Call, game.Check)
	case Strong:
		if view.CurrentBet <= view.BigBlind || b.rng.IntN(3) == 0 {
			return aggress(view.Options, view.CurrentBet+pot/2, game.Call, game.Check)
		}
		return choose(view.Options, game.Check, game.Call)
	case Medium:
		if call, ok := findOption(view.Options, game.Call); ok && call.Min > pot/2 {
			return choose(view.Options, game.Check)
		}
		return choose(view.Options, game.Check, game.Call)
	}
	return choose(view.Options, game.Check)
}

// Strength buckets a holding. Preflop it looks at pairs, high cards and
// suitedness; later streets count the ranks the hole cards make with the
// board.
func Strength(hole, board []deck.Card) HandStrength {
	hi, lo := hole[0].Rank, hole[1].Rank
	if lo > hi {
		hi, lo = lo, hi
	}

	if len(board) == 0 {
		switch {
		case hi == lo && hi >= deck.Jack:
			return VeryStrong
		case hi == lo, hi == deck.Ace && lo >= deck.Queen:
			return Strong
		case hi >= deck.Ten && lo >= deck.Ten,
			hi == deck.Ace && hole[0].Suit == hole[1].Suit:
			return Medium
		case hi-lo == 1 && hole[0].Suit == hole[1].Suit:
			return Weak
		}
		return VeryWeak
	}

	counts := make(map[deck.Rank]int, 7)
	topBoard := deck.Two
	for _, c := range board {
		counts[c.Rank]++
		topBoard = max(topBoard, c.Rank)
	}

	var matched int
	for _, c := range hole {
		matched += counts[c.Rank]
	}
	pocketPair := hi == lo

	switch {
	case matched >= 2 || (pocketPair && counts[hi] >= 1):
		return VeryStrong
	case pocketPair && hi > topBoard:
		return Strong
	case matched == 1 && counts[topBoard] > 0 && (hole[0].Rank == topBoard || hole[1].Rank == topBoard):
		return Strong
	case matched == 1, pocketPair:
		return Medium
	case hi == deck.Ace:
		return Weak
	}
	return VeryWeak
}

func parseTokens(tokens []string) ([]deck.Card, error) {
	cards := make([]deck.Card, 0, len(tokens))
	for _, token := range tokens {
		c, err := deck.ParseCard(token)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

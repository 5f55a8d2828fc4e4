package game

import (
	"slices"
)

// Pot represents a pot (main or side)
type Pot struct {
	Amount   int
	Eligible []int // Seats of contenders that can win this pot
}

// buildPots splits the chips committed this hand into a main pot and side
// pots, one per distinct commitment level among players still contending.
// Chips committed by folded players above the highest contender level are
// forfeited into the last pot.
func buildPots(players []*Player) []Pot {
	var levels []int
	for _, p := range players {
		if p.IsContending() && p.TotalBet > 0 {
			levels = append(levels, p.TotalBet)
		}
	}
	slices.Sort(levels)
	levels = slices.Compact(levels)

	pots := make([]Pot, 0, len(levels))
	previous := 0
	for _, level := range levels {
		pot := Pot{}
		for _, p := range players {
			if !p.InHand {
				continue
			}
			pot.Amount += min(p.TotalBet, level) - min(p.TotalBet, previous)
			if p.IsContending() && p.TotalBet >= level {
				pot.Eligible = append(pot.Eligible, p.Seat)
			}
		}
		pots = append(pots, pot)
		previous = level
	}

	forfeited := 0
	for _, p := range players {
		if p.InHand && p.TotalBet > previous {
			forfeited += p.TotalBet - previous
		}
	}
	if forfeited > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += forfeited
	}
	return pots
}

// splitPot divides amount between winners, which must be ordered clockwise
// from the dealer. Odd chips go to the first winner.
func splitPot(amount int, winners []*Player) map[*Player]int {
	shares := make(map[*Player]int, len(winners))
	if len(winners) == 0 {
		return shares
	}
	share := amount / len(winners)
	for _, w := range winners {
		shares[w] += share
	}
	shares[winners[0]] += amount - share*len(winners)
	return shares
}

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func potTotal(pots []Pot) int {
	total := 0
	for _, p := range pots {
		total += p.Amount
	}
	return total
}

func TestBuildPotsSingleLevel(t *testing.T) {
	t.Parallel()

	players := []*Player{
		{Seat: 0, InHand: true, TotalBet: 200},
		{Seat: 1, InHand: true, TotalBet: 200},
		{Seat: 2, InHand: true, TotalBet: 100, Folded: true},
	}

	pots := buildPots(players)
	assert.Equal(t, []Pot{{Amount: 500, Eligible: []int{0, 1}}}, pots)
}

func TestBuildPotsSidePots(t *testing.T) {
	t.Parallel()

	players := []*Player{
		{Seat: 0, InHand: true, TotalBet: 100, AllIn: true},
		{Seat: 1, InHand: true, TotalBet: 300, AllIn: true},
		{Seat: 2, InHand: true, TotalBet: 300},
		{Seat: 3, InHand: true, TotalBet: 50, Folded: true},
		{Seat: 4, InHand: false},
	}

	pots := buildPots(players)
	assert.Equal(t, []Pot{
		{Amount: 350, Eligible: []int{0, 1, 2}},
		{Amount: 400, Eligible: []int{1, 2}},
	}, pots)
	assert.Equal(t, 750, potTotal(pots))
}

func TestBuildPotsForfeitedChips(t *testing.T) {
	t.Parallel()

	// A player who left after out-betting every remaining stack forfeits
	// the excess to the last pot.
	players := []*Player{
		{Seat: 0, InHand: true, TotalBet: 500, Folded: true},
		{Seat: 1, InHand: true, TotalBet: 100, AllIn: true},
		{Seat: 2, InHand: true, TotalBet: 200, AllIn: true},
	}

	pots := buildPots(players)
	assert.Equal(t, []Pot{
		{Amount: 300, Eligible: []int{1, 2}},
		{Amount: 500, Eligible: []int{2}},
	}, pots)
	assert.Equal(t, 800, potTotal(pots))
}

func TestSplitPot(t *testing.T) {
	t.Parallel()

	a, b, c := &Player{Identity: "a"}, &Player{Identity: "b"}, &Player{Identity: "c"}

	shares := splitPot(100, []*Player{a, b, c})
	assert.Equal(t, 34, shares[a])
	assert.Equal(t, 33, shares[b])
	assert.Equal(t, 33, shares[c])

	shares = splitPot(100, []*Player{b})
	assert.Equal(t, map[*Player]int{b: 100}, shares)

	assert.Empty(t, splitPot(100, nil))
}

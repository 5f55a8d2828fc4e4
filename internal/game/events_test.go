package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandEvents(t *testing.T) {
	t.Parallel()

	table := newTestTable(t, withPlayers("alice", "bob", "carol", "dave"))
	var events []Event
	table.Subscribe(func(e Event) { events = append(events, e) })
	startHand(t, table)

	_, err := table.Leave("alice")
	require.NoError(t, err)
	_, token, _ := table.Turn()
	_, applied, err := table.Timeout("bob", token)
	require.NoError(t, err)
	require.True(t, applied)
	act(t, table, "carol", Call)
	act(t, table, "dave", Check)
	act(t, table, "carol", Bet, 100)
	outcome := act(t, table, "dave", Fold)
	require.True(t, outcome.HandComplete)

	var types []EventType
	for _, e := range events {
		types = append(types, e.EventType())
		assert.Equal(t, 1, e.Hand())
	}
	assert.Equal(t, []EventType{
		EventHandStart,
		EventPlayerAction, EventPlayerAction, EventPlayerAction, EventPlayerAction,
		EventStreetChange,
		EventPlayerAction, EventPlayerAction,
		EventHandEnd,
	}, types)

	assert.Equal(t, HandStartEvent{
		HandNumber: 1,
		Dealer:     "bob",
		SmallBlind: 50,
		BigBlind:   100,
		Stacks: []Stack{
			{Identity: "alice", Seat: 0, Chips: 1000},
			{Identity: "bob", Seat: 1, Chips: 1000},
			{Identity: "carol", Seat: 2, Chips: 1000},
			{Identity: "dave", Seat: 3, Chips: 1000},
		},
	}, events[0])

	assert.Equal(t, PlayerActionEvent{HandNumber: 1, Identity: "alice", Street: "preflop", Action: "fold", Pot: 150, Reason: "left"}, events[1])
	assert.Equal(t, PlayerActionEvent{HandNumber: 1, Identity: "bob", Street: "preflop", Action: "fold", Pot: 150, Reason: "timeout"}, events[2])
	assert.Equal(t, PlayerActionEvent{HandNumber: 1, Identity: "carol", Street: "preflop", Action: "call", Amount: 50, Bet: 100, Pot: 200}, events[3])

	flop, ok := events[5].(StreetChangeEvent)
	require.True(t, ok)
	assert.Equal(t, "flop", flop.Street)
	assert.Len(t, flop.Board, 3)
	assert.Equal(t, 200, flop.Pot)

	assert.Equal(t, PlayerActionEvent{HandNumber: 1, Identity: "carol", Street: "flop", Action: "bet", Amount: 100, Bet: 100, Pot: 300}, events[6])

	end, ok := events[8].(HandEndEvent)
	require.True(t, ok)
	assert.Equal(t, 300, end.Result.Pot)
	assert.Equal(t, []ReleasedSeat{{Identity: "alice", Seat: 0, Chips: 1000, Left: true}}, end.Result.Released)
	assert.Equal(t, []Stack{
		{Identity: "alice", Seat: 0, Chips: 1000},
		{Identity: "bob", Seat: 1, Chips: 1000},
		{Identity: "carol", Seat: 2, Chips: 1100},
		{Identity: "dave", Seat: 3, Chips: 900},
	}, end.Stacks)

	total := 0
	for _, s := range end.Stacks {
		total += s.Chips
	}
	assert.Equal(t, 4000, total, "stacks at hand end include released seats")
}

func TestReleasedSeatsRecorded(t *testing.T) {
	t.Parallel()

	eval := newScriptedEvaluator()
	table := newTestTable(t, withPlayers("alice", "bob", "carol"), withStack("alice", 100), withTestEvaluator(eval))
	startHand(t, table)

	// Dealer bob, carol posts the small blind, alice the big blind and is all in.
	eval.score(table.Player("carol"), 1)
	_, err := table.Leave("bob")
	require.NoError(t, err)
	act(t, table, "carol", Call)

	result := table.LastResult()
	require.NotNil(t, result)
	assert.ElementsMatch(t, []ReleasedSeat{
		{Identity: "alice", Seat: 0, Chips: 0},
		{Identity: "bob", Seat: 1, Chips: 1000, Left: true},
	}, result.Released)
	assert.Equal(t, []string{"carol"}, table.Identities())
}

package game

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/randutil"
)

type testTableOption func(*testTableBuilder)

type testTableBuilder struct {
	seed      int64
	config    TableConfig
	evaluator HandEvaluator
	players   []string
	stacks    map[string]int
}

func withSeed(seed int64) testTableOption {
	return func(b *testTableBuilder) { b.seed = seed }
}

func withBlinds(small, big int) testTableOption {
	return func(b *testTableBuilder) {
		b.config.SmallBlind = small
		b.config.BigBlind = big
	}
}

func withMinPlayers(n int) testTableOption {
	return func(b *testTableBuilder) { b.config.MinPlayers = n }
}

func withPlayers(names ...string) testTableOption {
	return func(b *testTableBuilder) { b.players = names }
}

func withStack(name string, chips int) testTableOption {
	return func(b *testTableBuilder) { b.stacks[name] = chips }
}

func withTestEvaluator(e HandEvaluator) testTableOption {
	return func(b *testTableBuilder) { b.evaluator = e }
}

// newTestTable creates a waiting table with the named players seated in
// order. Stacks default to the maximum buy-in.
func newTestTable(t *testing.T, opts ...testTableOption) *Table {
	t.Helper()

	config := DefaultTableConfig()
	config.ID = "test"
	config.Name = "test"
	config.MinPlayers = 2

	b := &testTableBuilder{
		seed:      42,
		config:    config,
		evaluator: newScriptedEvaluator(),
		stacks:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(b)
	}
	require.NoError(t, b.config.Validate())

	table := NewTable(randutil.New(b.seed), b.config, WithEvaluator(b.evaluator))
	for _, name := range b.players {
		_, err := table.Join(name, b.stacks[name])
		require.NoError(t, err)
	}
	return table
}

// startHand deals a hand and fails the test if it does not start
func startHand(t *testing.T, table *Table) {
	t.Helper()
	outcome, err := table.StartHand()
	require.NoError(t, err)
	require.True(t, outcome.Started)
	requireInvariants(t, table)
}

// act applies a decision from the player to act and checks they were expected
func act(t *testing.T, table *Table, identity string, action Action, amount ...int) Outcome {
	t.Helper()
	actor, _, ok := table.Turn()
	require.True(t, ok, "no player to act")
	require.Equal(t, identity, actor, "unexpected actor")

	d := Decision{Action: action}
	if len(amount) > 0 {
		d.Amount = amount[0]
	}
	outcome, err := table.Act(identity, d)
	require.NoError(t, err)
	requireInvariants(t, table)
	return outcome
}

// requireInvariants checks card accounting and turn consistency
func requireInvariants(t *testing.T, table *Table) {
	t.Helper()

	r := table.round
	if r == nil {
		require.Equal(t, Waiting, table.status)
		for _, p := range table.players {
			require.False(t, p.InHand, "%s still in hand after settlement", p.Identity)
			require.Empty(t, p.HoleCards)
		}
		return
	}

	require.Equal(t, Started, table.status)

	seen := make(map[deck.Card]bool, deck.Size)
	count := func(cards []deck.Card) {
		for _, c := range cards {
			require.False(t, seen[c], "card %s accounted twice", c)
			seen[c] = true
		}
	}
	count(r.deck.Cards())
	count(r.board)
	count(r.burned)
	for _, p := range table.players {
		count(p.HoleCards)
	}
	require.Len(t, seen, deck.Size)

	committed := 0
	for _, p := range table.players {
		require.GreaterOrEqual(t, p.Chips, 0)
		committed += p.TotalBet
	}
	require.Equal(t, r.pot, committed)

	if r.actor >= 0 {
		require.True(t, table.players[r.actor].IsLive(), "actor %s cannot act", table.players[r.actor].Identity)
	}
}

// scriptedEvaluator scores hands by their hole cards. Unscored hands tie at zero.
type scriptedEvaluator struct {
	scores map[string]int
}

func newScriptedEvaluator() *scriptedEvaluator {
	return &scriptedEvaluator{scores: make(map[string]int)}
}

func (e *scriptedEvaluator) score(p *Player, score int) {
	e.scores[holeKey(p.HoleCards)] = score
}

func (e *scriptedEvaluator) Evaluate(hole, board []deck.Card) (HandRank, error) {
	if len(hole) != 2 || len(board) != 5 {
		return HandRank{}, fmt.Errorf("bad hand %v %v", hole, board)
	}
	score := e.scores[holeKey(hole)]
	return HandRank{Score: score, Description: fmt.Sprintf("score %d", score)}, nil
}

func holeKey(cards []deck.Card) string {
	return strings.Join(deck.Tokens(cards), "")
}

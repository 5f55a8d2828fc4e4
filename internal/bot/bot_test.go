package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/deck"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/randutil"
)

var (
	facingBet = []game.ActionOption{
		{Action: "fold"},
		{Action: "call", Min: 100, Max: 100},
		{Action: "raise", Min: 200, Max: 1000},
	}
	unopened = []game.ActionOption{
		{Action: "fold"},
		{Action: "check"},
		{Action: "bet", Min: 100, Max: 1000},
	}
)

func view(options []game.ActionOption, hole string, board string) game.TableSnapshot {
	s := game.TableSnapshot{
		Viewer:     "me",
		BigBlind:   100,
		Pot:        150,
		CurrentBet: 100,
		Options:    options,
		Seats: []game.SeatView{{
			Identity:  "me",
			Chips:     1000,
			HoleCards: deck.Tokens(deck.MustParseCards(hole)),
		}},
	}
	if board != "" {
		s.Board = deck.Tokens(deck.MustParseCards(board))
	}
	return s
}

func newBot(t *testing.T, kind string) Bot {
	t.Helper()
	b, err := New(kind, randutil.New(3), log.New(io.Discard))
	require.NoError(t, err)
	return b
}

func legal(t *testing.T, options []game.ActionOption, d game.Decision) {
	t.Helper()
	o, ok := findOption(options, d.Action)
	require.True(t, ok, "%s is not on offer", d)
	if d.Action == game.Bet || d.Action == game.Raise {
		assert.GreaterOrEqual(t, d.Amount, o.Min)
		assert.LessOrEqual(t, d.Amount, o.Max)
	}
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New("shark", randutil.New(1), log.New(io.Discard))
	require.Error(t, err)
	assert.False(t, IsKind("shark"))
	for _, kind := range Kinds {
		assert.True(t, IsKind(kind))
	}
}

func TestFoldBot(t *testing.T) {
	b := newBot(t, "fold")
	assert.Equal(t, game.Fold, b.Decide(view(facingBet, "AsAh", "")).Action)
	assert.Equal(t, game.Check, b.Decide(view(unopened, "AsAh", "")).Action)
}

func TestCallBot(t *testing.T) {
	b := newBot(t, "call")
	assert.Equal(t, game.Decision{Action: game.Call, Amount: 100}, b.Decide(view(facingBet, "7c2d", "")))
	assert.Equal(t, game.Check, b.Decide(view(unopened, "7c2d", "")).Action)
}

func TestRandBotOnlyPicksLegalActions(t *testing.T) {
	b := newBot(t, "rand")
	for range 200 {
		legal(t, facingBet, b.Decide(view(facingBet, "7c2d", "")))
		legal(t, unopened, b.Decide(view(unopened, "7c2d", "")))
	}
}

func TestManiacBotRaises(t *testing.T) {
	b := newBot(t, "maniac")
	for range 50 {
		d := b.Decide(view(facingBet, "7c2d", ""))
		assert.Equal(t, game.Raise, d.Action)
		legal(t, facingBet, d)
	}

	d := b.Decide(view([]game.ActionOption{{Action: "fold"}, {Action: "call", Min: 40, Max: 40}}, "7c2d", ""))
	assert.Equal(t, game.Call, d.Action, "calls when it cannot raise")
}

func TestTAGBot(t *testing.T) {
	b := newBot(t, "tag")

	d := b.Decide(view(facingBet, "AsAh", ""))
	assert.Equal(t, game.Raise, d.Action)
	legal(t, facingBet, d)

	assert.Equal(t, game.Fold, b.Decide(view(facingBet, "7c2d", "")).Action)
	assert.Equal(t, game.Check, b.Decide(view(unopened, "7c2d", "Kh9s4d")).Action)

	d = b.Decide(view(unopened, "Kc9c", "Kh9s4d"))
	assert.Equal(t, game.Bet, d.Action)
	legal(t, unopened, d)
}

func TestStrength(t *testing.T) {
	tests := []struct {
		hole  string
		board string
		want  HandStrength
	}{
		{"AsAh", "", VeryStrong},
		{"5s5h", "", Strong},
		{"AsKd", "", Strong},
		{"QsTd", "", Medium},
		{"As4s", "", Medium},
		{"9s8s", "", Weak},
		{"7c2d", "", VeryWeak},
		{"Kc9c", "Kh9s4d", VeryStrong},
		{"4c4s", "Kh9s4d", VeryStrong},
		{"QcQs", "Jh9s4d", Strong},
		{"Kc2c", "Kh9s4d", Strong},
		{"9c2c", "Kh9s4d", Medium},
		{"Ac2c", "Kh9s4d", Weak},
		{"7c3d", "Kh9s4d", VeryWeak},
	}
	for _, tt := range tests {
		t.Run(tt.hole+tt.board, func(t *testing.T) {
			var board []deck.Card
			if tt.board != "" {
				board = deck.MustParseCards(tt.board)
			}
			assert.Equal(t, tt.want, Strength(deck.MustParseCards(tt.hole), board))
		})
	}
}

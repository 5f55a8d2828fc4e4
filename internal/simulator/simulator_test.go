package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/server"
	"github.com/lox/holdemtable/internal/store"
)

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Hands: 0, Players: 4})
	assert.ErrorContains(t, err, "hands must be positive")

	_, err = New(Config{Hands: 10, Players: 1})
	assert.ErrorContains(t, err, "at least two players")

	_, err = New(Config{Hands: 10, Players: 4, Bots: []string{"call", "shark"}})
	assert.ErrorContains(t, err, "unknown bot kind")

	sim, err := New(Config{Hands: 10, Players: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"call"}, sim.config.Bots)
}

func startTables(t *testing.T, names ...string) []Table {
	t.Helper()
	svc := server.NewGameService(store.NewMemoryStore(), nil, server.ServiceOptions{Seed: 11})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, svc.Shutdown(ctx))
	})

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		config := game.DefaultTableConfig()
		config.Name = name
		config.MaxPlayers = 6
		w, err := svc.CreateTable(context.Background(), config)
		require.NoError(t, err)
		tables = append(tables, w)
	}
	return tables
}

func TestRunPlaysHandsAndConservesChips(t *testing.T) {
	tables := startTables(t, "alpha", "beta")

	sim, err := New(Config{
		Hands:   40,
		Players: 5,
		Bots:    []string{"rand", "call", "maniac", "tag", "fold"},
		Seed:    99,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results, err := sim.Run(ctx, tables)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.GreaterOrEqual(t, result.Hands, 40)
		assert.Equal(t, result.BoughtIn, result.Chips)
		assert.Len(t, result.Kinds, 5)

		total := 0.0
		for _, player := range result.Ledger.Players() {
			stats := result.Ledger.Stats(player)
			require.NoError(t, stats.Validate())
			total += stats.AllBB
		}
		assert.InDelta(t, 0, total, 1e-6, "every chip won was lost by someone")
	}
	assert.Equal(t, "alpha", results[0].Table)
	assert.Equal(t, "beta", results[1].Table)
}

func TestRunRejectsTooManyPlayers(t *testing.T) {
	tables := startTables(t, "small")

	sim, err := New(Config{Hands: 5, Players: 8})
	require.NoError(t, err)

	_, err = sim.Run(context.Background(), tables)
	assert.ErrorContains(t, err, "8 players cannot run a table seating 4-6")
}

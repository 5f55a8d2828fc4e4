package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/holdemtable/internal/simulator"
)

// SimulateCmd seats bots at every configured table and plays hands
type SimulateCmd struct {
	Hands   int           `default:"1000" help:"Hands to play at each table"`
	Players int           `default:"6" help:"Bots seated at each table"`
	Bots    []string      `default:"tag,call,rand,maniac" help:"Bot kinds, assigned to seats in turn (fold, call, rand, maniac, tag)"`
	BuyIn   int           `help:"Chips each bot buys in for (defaults to the table maximum)"`
	Seed    int64         `help:"Deterministic RNG seed (overrides config)"`
	Timeout time.Duration `default:"10m" help:"Give up after this long"`
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	tableStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	winStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)

func (c *SimulateCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig()
	if err != nil {
		return err
	}
	options := cfg.ServiceOptions()
	if c.Seed != 0 {
		options.Seed = c.Seed
	}
	if options.Seed == 0 {
		options.Seed = time.Now().UnixNano()
	}
	// Bots answer immediately and there is nothing to wait for between hands.
	options.HandInterval = 0

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	h, err := start(ctx, cfg, logger, options)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.close(closeCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	sim, err := simulator.New(simulator.Config{
		Hands:   c.Hands,
		Players: c.Players,
		Bots:    c.Bots,
		BuyIn:   c.BuyIn,
		Seed:    options.Seed,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	tables := make([]simulator.Table, 0, len(h.tables))
	for _, w := range h.tables {
		tables = append(tables, w)
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("Simulating %d hands at %d table(s), seed %d", c.Hands, len(tables), options.Seed)))
	results, err := sim.Run(ctx, tables)
	if err != nil {
		return err
	}
	printResults(results)
	return nil
}

func printResults(results []simulator.TableResult) {
	for _, result := range results {
		fmt.Println()
		fmt.Println(tableStyle.Render(fmt.Sprintf("Table %s", result.Table)) +
			dimStyle.Render(fmt.Sprintf("  %d hands, %d rebuys, %d chips, %.1f hands/s",
				result.Hands, result.Rebuys, result.Chips, float64(result.Hands)/result.Duration.Seconds())))
		fmt.Println(headerStyle.Render(fmt.Sprintf("  %-24s %-8s %8s %18s %8s %8s",
			"Player", "Bot", "Hands", "BB/100 (95% CI)", "SD wins", "Big pots")))

		for _, player := range result.Ledger.Players() {
			stats := result.Ledger.Stats(player)
			lo, hi := stats.ConfidenceInterval95()
			rate := fmt.Sprintf("%+.1f", stats.BB100())
			style := winStyle
			if stats.Mean() < 0 {
				style = lossStyle
			}
			fmt.Printf("  %-24s %-8s %8d %s %s %8d %8d\n",
				player,
				result.Kinds[player],
				stats.Hands,
				style.Render(fmt.Sprintf("%8s", rate)),
				dimStyle.Render(fmt.Sprintf("%-9s", fmt.Sprintf("[%.0f,%.0f]", lo*100, hi*100))),
				stats.ShowdownWins,
				stats.BigPots)
		}
	}
	fmt.Println()
	fmt.Println(dimStyle.Render(strings.Repeat("─", 80)))
}

// Package bot contains simple automated players used to drive simulated
// tables. A bot sees exactly what a seated player sees: its private table
// snapshot, including the legal options for the current turn.
package bot

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtable/internal/game"
)

// Bot picks a decision for the viewer of a snapshot. It is only called when
// the snapshot lists options.
type Bot interface {
	Decide(view game.TableSnapshot) game.Decision
}

// Kinds lists the bot kinds accepted by New
var Kinds = []string{"fold", "call", "rand", "maniac", "tag"}

// New creates a bot of the named kind
func New(kind string, rng *rand.Rand, logger *log.Logger) (Bot, error) {
	logger = logger.WithPrefix("bot").With("kind", kind)
	switch kind {
	case "fold":
		return NewFoldBot(logger), nil
	case "call":
		return NewCallBot(logger), nil
	case "rand":
		return NewRandBot(rng, logger), nil
	case "maniac":
		return NewManiacBot(rng, logger), nil
	case "tag":
		return NewTAGBot(rng, logger), nil
	}
	return nil, fmt.Errorf("unknown bot kind %q, want one of %v", kind, Kinds)
}

// IsKind reports whether kind names a bot
func IsKind(kind string) bool {
	return slices.Contains(Kinds, kind)
}

func findOption(options []game.ActionOption, action game.Action) (game.ActionOption, bool) {
	name := action.String()
	for _, o := range options {
		if o.Action == name {
			return o, true
		}
	}
	return game.ActionOption{}, false
}

// choose returns the first available action from preferred, sized at the
// option's minimum. Fold is the last resort.
func choose(options []game.ActionOption, preferred ...game.Action) game.Decision {
	for _, action := range preferred {
		if o, ok := findOption(options, action); ok {
			return game.Decision{Action: action, Amount: o.Min}
		}
	}
	if _, ok := findOption(options, game.Check); ok {
		return game.Decision{Action: game.Check}
	}
	return game.Decision{Action: game.Fold}
}

// sized returns a bet or raise to amount, clamped into the option's range
func sized(o game.ActionOption, action game.Action, amount int) game.Decision {
	return game.Decision{Action: action, Amount: max(o.Min, min(amount, o.Max))}
}

// aggress bets or raises to amount if either is open, otherwise falls back
// to the passive choice
func aggress(options []game.ActionOption, amount int, fallback ...game.Action) game.Decision {
	if o, ok := findOption(options, game.Bet); ok {
		return sized(o, game.Bet, amount)
	}
	if o, ok := findOption(options, game.Raise); ok {
		return sized(o, game.Raise, amount)
	}
	return choose(options, fallback...)
}

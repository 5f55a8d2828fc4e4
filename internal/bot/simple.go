package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/holdemtable/internal/game"
)

// FoldBot checks when it can and folds otherwise
type FoldBot struct {
	logger *log.Logger
}

// NewFoldBot creates a new FoldBot instance
func NewFoldBot(logger *log.Logger) *FoldBot {
	return &FoldBot{logger: logger}
}

func (f *FoldBot) Decide(view game.TableSnapshot) game.Decision {
	return choose(view.Options, game.Check)
}

// CallBot checks or calls every street
type CallBot struct {
	logger *log.Logger
}

// NewCallBot creates a new CallBot instance
func NewCallBot(logger *log.Logger) *CallBot {
	return &CallBot{logger: logger}
}

func (c *CallBot) Decide(view game.TableSnapshot) game.Decision {
	return choose(view.Options, game.Check, game.Call)
}

// RandBot makes uniform random legal actions
type RandBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewRandBot creates a new RandBot instance
func NewRandBot(rng *rand.Rand, logger *log.Logger) *RandBot {
	return &RandBot{rng: rng, logger: logger}
}

func (r *RandBot) Decide(view game.TableSnapshot) game.Decision {
	if len(view.Options) == 0 {
		return game.Decision{Action: game.Fold}
	}

	o := view.Options[r.rng.IntN(len(view.Options))]
	action, err := game.ParseAction(o.Action)
	if err != nil {
		r.logger.Warn("unknown option", "action", o.Action)
		return game.Decision{Action: game.Fold}
	}

	amount := o.Min
	if o.Max > o.Min && (action == game.Bet || action == game.Raise) {
		amount = o.Min + r.rng.IntN(o.Max-o.Min+1)
	}
	return game.Decision{Action: action, Amount: amount}
}

// ManiacBot raises whenever it can, sometimes shoving its whole stack
type ManiacBot struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewManiacBot creates a new ManiacBot instance
func NewManiacBot(rng *rand.Rand, logger *log.Logger) *ManiacBot {
	return &ManiacBot{rng: rng, logger: logger}
}

func (m *ManiacBot) Decide(view game.TableSnapshot) game.Decision {
	target := view.CurrentBet*3 + view.Pot/2
	if m.rng.IntN(10) == 0 {
		// All in.
		target = int(^uint(0) >> 1)
	}
	return aggress(view.Options, target, game.Call, game.Check)
}

package game

import (
	"fmt"
	"strings"
)

// Street represents the betting round
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise"}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseAction converts a lowercase action name to an Action
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold":
		return Fold, nil
	case "check":
		return Check, nil
	case "call":
		return Call, nil
	case "bet":
		return Bet, nil
	case "raise":
		return Raise, nil
	}
	return 0, validationError(ErrInvalidAction, "unknown action %q", s)
}

// Decision is a betting decision submitted by the player to act. For Bet and
// Raise, Amount is the player's total commitment for the street ("raise to").
// Amount is ignored for the other actions.
type Decision struct {
	Action Action
	Amount int
}

// ActionOption describes one legal action for the player to act. Min and Max
// bound the street total for Bet and Raise; for Call they hold the amount
// added to the pot.
type ActionOption struct {
	Action string `json:"action"`
	Min    int    `json:"min,omitempty"`
	Max    int    `json:"max,omitempty"`
}

// legalActions lists the options available to p against the current round.
func (r *Round) legalActions(p *Player, bigBlind int) []ActionOption {
	options := []ActionOption{{Action: Fold.String()}}
	toCall := r.currentBet - p.Bet
	maxTotal := p.Bet + p.Chips

	if toCall <= 0 {
		options = append(options, ActionOption{Action: Check.String()})
		if r.currentBet == 0 && p.Chips > 0 {
			options = append(options, ActionOption{
				Action: Bet.String(),
				Min:    min(bigBlind, maxTotal),
				Max:    maxTotal,
			})
			return options
		}
	} else {
		options = append(options, ActionOption{
			Action: Call.String(),
			Min:    min(toCall, p.Chips),
			Max:    min(toCall, p.Chips),
		})
	}

	// A player who already acted and now faces only a short all-in may
	// call or fold but not raise again.
	if r.currentBet > 0 && maxTotal > r.currentBet && !p.Acted {
		options = append(options, ActionOption{
			Action: Raise.String(),
			Min:    min(r.currentBet+r.minRaise, maxTotal),
			Max:    maxTotal,
		})
	}
	return options
}

// apply validates d for p and updates the player and round. On error nothing
// has been changed.
func (t *Table) apply(p *Player, d Decision) error {
	r := t.round
	toCall := r.currentBet - p.Bet

	switch d.Action {
	case Fold:
		p.Folded = true

	case Check:
		if toCall > 0 {
			return validationError(ErrInvalidAction, "cannot check facing a bet of %d", r.currentBet)
		}

	case Call:
		if toCall > 0 {
			t.put(p, toCall)
		}

	case Bet:
		if r.currentBet > 0 {
			return validationError(ErrInvalidAction, "cannot bet into %d, raise instead", r.currentBet)
		}
		return t.raiseTo(p, d.Amount, t.config.BigBlind)

	case Raise:
		if r.currentBet == 0 {
			return validationError(ErrInvalidAction, "nothing to raise, bet instead")
		}
		if p.Acted {
			return validationError(ErrInvalidAction, "betting was not reopened by a short all-in")
		}
		return t.raiseTo(p, d.Amount, r.currentBet+r.minRaise)

	default:
		return validationError(ErrInvalidAction, "unknown action %d", d.Action)
	}
	return nil
}

// raiseTo sets the player's street total to total. Totals below minTotal are
// only accepted when they put the player all-in.
func (t *Table) raiseTo(p *Player, total, minTotal int) error {
	r := t.round
	maxTotal := p.Bet + p.Chips

	if total > maxTotal {
		return validationError(ErrInsufficientChips, "%s to %d with only %d available", actionVerb(r), total, maxTotal)
	}
	if total <= r.currentBet {
		return validationError(ErrInvalidAction, "%s to %d does not exceed current bet %d", actionVerb(r), total, r.currentBet)
	}
	if total < minTotal && total != maxTotal {
		return validationError(ErrInvalidAction, "minimum %s is to %d", actionVerb(r), minTotal)
	}

	increase := total - r.currentBet
	t.put(p, total-p.Bet)
	r.currentBet = total
	if increase < r.minRaise {
		// Short all-in: others must still match it, which needsAction sees
		// through Bet < currentBet, but the raise does not reopen betting.
		return nil
	}
	r.minRaise = increase

	for _, other := range t.players {
		if other != p && other.IsLive() {
			other.Acted = false
		}
	}
	return nil
}

// put moves chips from p into the pot, capped at the player's stack.
func (t *Table) put(p *Player, amount int) int {
	moved := p.commit(amount)
	t.round.pot += moved
	return moved
}

func actionVerb(r *Round) string {
	if r.currentBet == 0 {
		return "bet"
	}
	return "raise"
}

func (d Decision) String() string {
	switch d.Action {
	case Bet, Raise:
		return fmt.Sprintf("%s %d", d.Action, d.Amount)
	}
	return d.Action.String()
}

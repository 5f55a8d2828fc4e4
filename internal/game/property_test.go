package game

import (
	"fmt"
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/randutil"
)

// randomDecision picks uniformly among the legal options, choosing a random
// amount inside the bet and raise bounds.
func randomDecision(rng *rand.Rand, options []ActionOption) Decision {
	opt := options[rng.IntN(len(options))]
	action, err := ParseAction(opt.Action)
	if err != nil {
		panic(err)
	}
	d := Decision{Action: action}
	if action == Bet || action == Raise {
		d.Amount = opt.Min + rng.IntN(opt.Max-opt.Min+1)
	}
	return d
}

func TestRandomPlayKeepsInvariants(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			table := newTestTable(t,
				withSeed(seed),
				withMinPlayers(3),
				withPlayers("p0", "p1", "p2", "p3", "p4", "p5"),
				withTestEvaluator(PokerEvaluator{}))
			rng := randutil.New(seed * 31)
			next := 6
			total := table.TotalChips()

			for hand := 0; hand < 50; hand++ {
				for table.NumPlayers() < 6 {
					_, err := table.Join(fmt.Sprintf("p%d", next), 0)
					require.NoError(t, err)
					next++
					total += 1000
				}

				startHand(t, table)
				handNumber := table.HandNumber()

				for steps := 0; table.round != nil; steps++ {
					require.Less(t, steps, 500, "hand %d did not finish", handNumber)

					actor, _, ok := table.Turn()
					require.True(t, ok)
					options := table.LegalActions(actor)
					require.NotEmpty(t, options)

					d := randomDecision(rng, options)
					_, err := table.Act(actor, d)
					require.NoError(t, err, "hand %d: %s %s", handNumber, actor, d)
					requireInvariants(t, table)
					require.Equal(t, total, table.TotalChips(), "chips not conserved")
				}

				result := table.LastResult()
				require.NotNil(t, result)
				require.Equal(t, handNumber, result.HandNumber)
				paid := 0
				for _, w := range result.Winners {
					paid += w.Amount
				}
				require.Equal(t, result.Pot, paid)
			}
		})
	}
}

func TestRandomPlayWithLeavesAndJoins(t *testing.T) {
	t.Parallel()

	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			table := newTestTable(t,
				withSeed(seed),
				withMinPlayers(3),
				withPlayers("p0", "p1", "p2", "p3", "p4", "p5"),
				withTestEvaluator(PokerEvaluator{}))
			rng := randutil.New(seed * 17)
			next := 6
			total := table.TotalChips()
			leaves := 0

			requireDealerInRange := func() {
				t.Helper()
				if n := table.NumPlayers(); n > 0 {
					require.Less(t, table.Dealer(), n, "dealer index past the roster")
				}
				require.GreaterOrEqual(t, table.Dealer(), 0)
			}

			for hand := 0; hand < 50; hand++ {
				for table.NumPlayers() < 6 {
					_, err := table.Join(fmt.Sprintf("p%d", next), 0)
					require.NoError(t, err)
					next++
					total += 1000
				}

				startHand(t, table)
				handNumber := table.HandNumber()
				var departing []*Player

				for steps := 0; table.round != nil; steps++ {
					require.Less(t, steps, 500, "hand %d did not finish", handNumber)

					switch roll := rng.IntN(12); {
					case roll == 0 && table.NumPlayers() > 3:
						ids := table.Identities()
						id := ids[rng.IntN(len(ids))]
						p := table.Player(id)
						if p.LeavePending {
							continue
						}
						inHand := p.InHand
						_, err := table.Leave(id)
						require.NoError(t, err)
						leaves++
						if inHand {
							require.True(t, p.LeavePending)
							require.True(t, p.Folded)
							departing = append(departing, p)
						} else {
							require.False(t, table.IsSeated(id))
							total -= p.Chips
						}

					case roll == 1 && table.NumPlayers() < 6:
						buyIn := 100 + rng.IntN(901)
						id := fmt.Sprintf("p%d", next)
						p, err := table.Join(id, buyIn)
						require.NoError(t, err)
						require.False(t, p.InHand, "mid-hand joiner dealt in")
						next++
						total += buyIn

					default:
						actor, _, ok := table.Turn()
						require.True(t, ok)
						options := table.LegalActions(actor)
						require.NotEmpty(t, options)
						d := randomDecision(rng, options)
						_, err := table.Act(actor, d)
						require.NoError(t, err, "hand %d: %s %s", handNumber, actor, d)
					}

					requireInvariants(t, table)
					requireDealerInRange()
					if table.round != nil {
						require.Equal(t, total, table.TotalChips(), "chips not conserved")
					}
				}

				// Leavers take their remaining stacks with them at settlement.
				for _, p := range departing {
					require.False(t, table.IsSeated(p.Identity), "%s still seated", p.Identity)
					total -= p.Chips
				}
				require.Equal(t, total, table.TotalChips(), "chips not conserved at settlement of hand %d", handNumber)
				requireDealerInRange()

				result := table.LastResult()
				require.NotNil(t, result)
				require.Equal(t, handNumber, result.HandNumber)
				paid := 0
				for _, w := range result.Winners {
					paid += w.Amount
				}
				require.Equal(t, result.Pot, paid)
			}
			require.Positive(t, leaves)
		})
	}
}

package commands

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/mroth/weightedrand"
	"github.com/spf13/cobra"

	bh "github.com/decentrust/decentrust/behaviour"
	"github.com/decentrust/decentrust/config"
	"github.com/decentrust/decentrust/libs/log"
	"github.com/decentrust/decentrust/scenario"
	"github.com/decentrust/decentrust/trust"
)

var errNegativeValidators = errors.New("number of validators can't be negative")

// MakeElectCommand constructs a command that replays a scenario and draws a
// validator set weighted by trust tier.
func MakeElectCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var (
		validators int
		seed       int64
	)
	cmd := &cobra.Command{
		Use:   "elect [scenario]",
		Short: "Replay a scenario and elect validators weighted by trust tier",
		Long: `Elect replays a scenario, buckets every peer with the [bucket]
config section and draws up to --validators distinct peers, each with
probability proportional to its tier. Peers in tier 0 are never elected.
The draw is reproducible for a given --seed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if validators < 0 {
				return errNegativeValidators
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}

			store, err := replayScenario(cmd.Context(), conf, conf.Trust.Params(), logger, trust.NopMetrics(), sc)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Stop(); err != nil {
					logger.Error("failed to stop trust store", "err", err)
				}
			}()

			peers := sc.AllPeers()
			var tiers map[bh.PeerID]int
			err = store.View(func(t trust.Tracker[bh.PeerID, float64]) error {
				tiers, err = conf.Bucket.Bucketize(t, peers)
				return err
			})
			if err != nil {
				return err
			}

			elected, err := electValidators(peers, tiers, validators, rand.New(rand.NewSource(seed))) // nolint:gosec
			if err != nil {
				return err
			}
			logger.Info("elected validators", "seed", seed, "requested", validators, "elected", len(elected))
			for _, p := range elected {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", p, tiers[p])
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&validators, "validators", 4, "number of validators to elect")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed of the weighted draw (default: current time)")
	return cmd
}

// electValidators draws up to n distinct peers without replacement, each
// weighted by its tier. Peers in tier 0 are skipped. When fewer than n
// peers qualify, all of them are returned in draw order.
func electValidators(peers []bh.PeerID, tiers map[bh.PeerID]int, n int, rng *rand.Rand) ([]bh.PeerID, error) {
	candidates := make([]weightedrand.Choice, 0, len(peers))
	for _, p := range peers {
		if tier := tiers[p]; tier > 0 {
			candidates = append(candidates, weightedrand.NewChoice(p, uint(tier)))
		}
	}

	elected := make([]bh.PeerID, 0, n)
	for len(elected) < n && len(candidates) > 0 {
		chooser, err := weightedrand.NewChooser(candidates...)
		if err != nil {
			return nil, fmt.Errorf("electing validator #%d: %w", len(elected), err)
		}
		pick := chooser.PickSource(rng).(bh.PeerID)
		elected = append(elected, pick)

		for i, c := range candidates {
			if c.Item.(bh.PeerID) == pick {
				candidates = append(candidates[:i], candidates[i+1:]...)
				break
			}
		}
	}
	return elected, nil
}

package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	bh "github.com/decentrust/decentrust/behaviour"
	"github.com/decentrust/decentrust/config"
	"github.com/decentrust/decentrust/libs/log"
	"github.com/decentrust/decentrust/scenario"
	"github.com/decentrust/decentrust/sketch"
	"github.com/decentrust/decentrust/trust"
)

// MakeInspectCommand constructs a command that replays a scenario into the
// sketch backend and dumps per-row statistics of its four matrices.
func MakeInspectCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [scenario]",
		Short: "Replay a scenario into a sketch tracker and print its matrices' statistics",
		Long: `Inspect replays a scenario like replay does, always with the sketch
backend, and prints for every view the sum, non-zero cell count and
maximum of each row, followed by every peer's estimates. Use it to judge
whether width and depth suit the expected number of peers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			params := conf.Trust.Params()
			params.Mode = trust.ModeSketch

			store, err := replayScenario(cmd.Context(), conf, params, logger, trust.NopMetrics(), sc)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Stop(); err != nil {
					logger.Error("failed to stop trust store", "err", err)
				}
			}()

			w := cmd.OutOrStdout()
			return store.View(func(t trust.Tracker[bh.PeerID, float64]) error {
				views := []struct {
					name string
					view trust.View[bh.PeerID, float64]
				}{
					{config.ViewRawLocal, t.RawLocalMap()},
					{config.ViewNormalizedLocal, t.NormalizedLocalMap()},
					{config.ViewRawGlobal, t.RawGlobalMap()},
					{config.ViewNormalizedGlobal, t.NormalizedGlobalMap()},
				}
				for _, v := range views {
					sv, ok := v.view.(*trust.SketchView[bh.PeerID, float64])
					if !ok {
						return fmt.Errorf("view %s is not backed by a sketch", v.name)
					}
					printSketchStats(w, v.name, sv.Sketch())
				}
				return printTrustTable(w, conf.Bucket, t, sc.AllPeers())
			})
		},
	}
}

type rowStats struct {
	sum     float64
	nonZero int
	max     float64
}

func sketchRowStats(s *sketch.CountMinSketch[float64]) []rowStats {
	stats := make([]rowStats, s.Depth())
	for it := s.Snapshot(); it.Next(); {
		st := &stats[it.Row()]
		v := it.Value()
		st.sum += v
		if v != 0 {
			st.nonZero++
		}
		if v > st.max {
			st.max = v
		}
	}
	return stats
}

func printSketchStats(w io.Writer, name string, s *sketch.CountMinSketch[float64]) {
	fmt.Fprintf(w, "%s: %dx%d %s hash, ~%d peers\n", name, s.Depth(), s.Width(), s.Hasher().Kind(), s.EstimateLength())

	table := newTable(w)
	table.SetHeader([]string{"row", "sum", "non-zero", "max"})
	for i, st := range sketchRowStats(s) {
		table.Append([]string{
			strconv.Itoa(i),
			formatTrust(st.sum),
			strconv.Itoa(st.nonZero),
			formatTrust(st.max),
		})
	}
	table.Render()
}

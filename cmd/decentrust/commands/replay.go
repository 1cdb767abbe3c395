package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	bh "github.com/decentrust/decentrust/behaviour"
	"github.com/decentrust/decentrust/config"
	"github.com/decentrust/decentrust/libs/log"
	"github.com/decentrust/decentrust/scenario"
	"github.com/decentrust/decentrust/trust"
)

const ctxTimeout = 4 * time.Second

// MakeReplayCommand constructs a command to replay a scenario against a
// fresh tracker and print the resulting trust table.
func MakeReplayCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var serve bool
	cmd := &cobra.Command{
		Use:   "replay [scenario]",
		Short: "Replay a behaviour scenario and print the trust of every peer",
		Long: `Replay applies every event of a scenario file, in order, to a new
tracker built from the [trust] config section, then prints raw and
normalized local and global trust with the tier assigned by the [bucket]
section. With instrumentation.prometheus enabled, metrics are served on
prometheus_listen_addr while the replay runs, and until interrupted when
--serve is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			rlogger := logger.With("run_id", uuid.New().String(), "scenario", sc.Name)

			metrics := trust.NopMetrics()
			if conf.Instrumentation.Prometheus {
				metrics = trust.PrometheusMetrics(conf.Instrumentation.Namespace, "moniker", conf.Moniker)
			}

			g, gctx := errgroup.WithContext(cmd.Context())
			ctx, cancel := context.WithCancel(gctx)
			defer cancel()

			if conf.Instrumentation.Prometheus {
				g.Go(func() error {
					return startPrometheusServer(ctx, conf.Instrumentation, rlogger)
				})
			}
			g.Go(func() error {
				if !serve {
					defer cancel()
				}
				store, err := replayScenario(ctx, conf, conf.Trust.Params(), rlogger, metrics, sc)
				if err != nil {
					return err
				}
				defer func() {
					if err := store.Stop(); err != nil {
						rlogger.Error("failed to stop trust store", "err", err)
					}
				}()

				err = store.View(func(t trust.Tracker[bh.PeerID, float64]) error {
					return printTrustTable(cmd.OutOrStdout(), conf.Bucket, t, sc.AllPeers())
				})
				if err != nil {
					return err
				}
				if serve {
					rlogger.Info("replay done, serving metrics until interrupted")
					<-ctx.Done()
				}
				return nil
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "keep serving metrics after the replay until interrupted")
	return cmd
}

// replayScenario applies sc to a started store over a new tracker built
// from params. The caller stops the returned store.
func replayScenario(
	ctx context.Context,
	conf *config.Config,
	params trust.Params[float64],
	logger log.Logger,
	metrics *trust.Metrics,
	sc *scenario.Scenario,
) (*trust.Store[bh.PeerID, float64], error) {
	behaviours, err := sc.Behaviours()
	if err != nil {
		return nil, err
	}
	tracker, err := trust.New[bh.PeerID](params)
	if err != nil {
		return nil, err
	}

	store := trust.NewStore(
		logger.With("module", "trust"),
		tracker,
		trust.WithMetrics(metrics),
		trust.WithReportInterval(conf.Trust.ReportInterval),
	)
	if err := store.Start(ctx); err != nil {
		return nil, err
	}

	logger.Info("replaying scenario", "mode", string(tracker.Mode()), "events", len(sc.Events), "behaviours", len(behaviours))
	reporter := bh.NewTrustReporter(logger.With("module", "behaviour"), store, conf.Behaviour.Weights())
	if err := bh.ReportAll(reporter, behaviours); err != nil {
		_ = store.Stop()
		return nil, err
	}
	return store, nil
}

// printTrustTable writes one row per peer. t must not be shared with other
// goroutines for the duration of the call; pass the tracker handed out by
// Store.View.
func printTrustTable(w io.Writer, bcfg *config.BucketConfig, t trust.Tracker[bh.PeerID, float64], peers []bh.PeerID) error {
	tiers, err := bcfg.Bucketize(t, peers)
	if err != nil {
		return err
	}

	table := newTable(w)
	table.SetHeader([]string{"peer", "local", "normalized local", "global", "normalized global", "tier"})
	for _, p := range peers {
		rawLocal, _ := t.RawLocal(p)
		normLocal, _ := t.NormalizedLocal(p)
		rawGlobal, _ := t.RawGlobal(p)
		normGlobal, _ := t.NormalizedGlobal(p)
		table.Append([]string{
			string(p),
			formatTrust(rawLocal),
			formatTrust(normLocal),
			formatTrust(rawGlobal),
			formatTrust(normGlobal),
			strconv.Itoa(tiers[p]),
		})
	}
	table.Render()
	return nil
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	return table
}

func formatTrust(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// startPrometheusServer serves the default registry until ctx is done.
func startPrometheusServer(ctx context.Context, cfg *config.InstrumentationConfig, logger log.Logger) error {
	srv := &http.Server{
		Addr: cfg.PrometheusListenAddr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: cfg.MaxOpenConnections},
			),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("prometheus server starting", "address", cfg.PrometheusListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("prometheus server shutdown: %w", err)
		}
		logger.Info("prometheus server stopped", "address", cfg.PrometheusListenAddr)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("prometheus server stopped with error", "address", cfg.PrometheusListenAddr, "err", err)
		return err
	}
}

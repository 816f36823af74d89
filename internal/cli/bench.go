package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tutu-network/peersearch/internal/daemon"
	"github.com/tutu-network/peersearch/internal/domain"
	"github.com/tutu-network/peersearch/internal/infra/metrics"
	"github.com/tutu-network/peersearch/internal/infra/sqlite"
	"github.com/tutu-network/peersearch/internal/infra/topofile"
	"github.com/tutu-network/peersearch/internal/overlay"
	"github.com/tutu-network/peersearch/internal/search"
)

func init() {
	benchCmd.Flags().IntVar(&benchTTL, "ttl", -1, "Hop budget (default: config search.default_ttl)")
	benchCmd.Flags().IntVar(&benchRuns, "runs", 3, "Sweeps over every origin peer per strategy")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "Base seed for random-walk strategies")
	benchCmd.Flags().StringSliceVar(&benchStrategies, "strategy", nil, "Strategies to compare (default: all)")
	benchCmd.Flags().BoolVar(&benchQuiet, "quiet", false, "Hide the progress bar")
	rootCmd.AddCommand(benchCmd)
}

var (
	benchTTL        int
	benchRuns       int
	benchSeed       int64
	benchStrategies []string
	benchQuiet      bool
)

var benchCmd = &cobra.Command{
	Use:   "bench TOPOLOGY RESOURCE",
	Short: "Compare search strategies by searching from every peer",
	Long: `Search for RESOURCE from every peer, --runs times, with each strategy.
Each strategy starts from fresh caches, so informed strategies learn only
from their own earlier runs. Results are aggregated in an in-memory ledger.`,
	Args: cobra.ExactArgs(2),
	RunE: runBench,
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	spec, err := topofile.Load(args[0])
	if err != nil {
		return err
	}
	resource := domain.ResourceID(args[1])

	strategies := domain.Strategies()
	if len(benchStrategies) > 0 {
		strategies = strategies[:0]
		for _, name := range benchStrategies {
			s, err := domain.ParseStrategy(name)
			if err != nil {
				return err
			}
			strategies = append(strategies, s)
		}
	}
	ttl := benchTTL
	if ttl < 0 {
		ttl = cfg.Search.DefaultTTL
	}

	logger, err := daemon.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ledger, err := sqlite.Open(logger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	total := len(strategies) * benchRuns * len(spec.Resources)
	var pb *progressBar
	if !benchQuiet {
		pb = newProgressBar(cmd.ErrOrStderr(), total)
	}

	done := 0
	for _, s := range strategies {
		net, err := overlay.Build(spec)
		if err != nil {
			return err
		}
		engine := search.New(net,
			search.WithLogger(logger),
			search.WithObserver(ledger),
			search.WithObserver(metrics.NewRecorder(net.CacheEntries)),
		)

		for run := 0; run < benchRuns; run++ {
			for _, origin := range net.IDs() {
				req := domain.SearchRequest{Origin: origin, Resource: resource, TTL: ttl, Strategy: s}
				if s.Walk() {
					seed := benchSeed + int64(done)
					req.Seed = &seed
				}
				if _, err := engine.Search(cmd.Context(), req); err != nil {
					return err
				}
				done++
				if pb != nil {
					pb.update(done)
				}
			}
		}
	}
	if pb != nil {
		pb.finish()
	}

	summary, err := ledger.Summary()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "resource=%s ttl=%d runs=%d peers=%d\n\n", resource, ttl, benchRuns, len(spec.Resources))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tSEARCHES\tHIT RATE\tAVG MESSAGES\tAVG NODES\tAVG HOPS\tREDIRECTS\tTOTAL MESSAGES")
	for _, row := range summary {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%d\t%d\n",
			row.Strategy, row.Runs, row.HitRate()*100, row.AvgMessages,
			row.AvgNodes, row.AvgHops, row.Redirects, row.TotalMessages)
	}
	return w.Flush()
}

package cli

import (
	"os"

	"github.com/raphaelgruber/podcastrag/internal/db"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph size and store health",
	Long: `Show how many episodes and segments the graph holds and whether the
store is reachable. With --server, shows the server's runtime timings.

Examples:
  podcastrag stats
  podcastrag stats --server http://localhost:8484 --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

// StatsOutput is the --json shape of the stats command.
type StatsOutput struct {
	StoreConnected bool             `json:"store_connected"`
	StoreFailures  int64            `json:"store_failures"`
	Graph          *db.GraphCounts  `json:"graph,omitempty"`
	Metrics        metrics.Snapshot `json:"metrics"`
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var out StatsOutput

	if c := remote(); c != nil {
		body, err := c.Stats(ctx)
		if err != nil {
			return err
		}
		out = StatsOutput{StoreConnected: body.StoreConnected, StoreFailures: body.StoreFailures, Metrics: body.Metrics}
	} else {
		a, err := getApp(ctx, false)
		if err != nil {
			return err
		}
		if counts, err := a.GraphCounts(ctx); err == nil {
			out.Graph = &counts
		}
		out.StoreConnected = a.Store.Connected()
		out.StoreFailures = a.Store.Failures()
		out.Metrics = a.Metrics.Snapshot()
	}

	p := newPrinter(os.Stdout)
	if jsonOutput {
		return p.json(out)
	}

	if out.StoreConnected {
		p.cited("Graph store: connected")
	} else {
		p.errorf("Graph store: unavailable")
	}
	if out.StoreFailures > 0 {
		p.line("Failed queries: %d", out.StoreFailures)
	}
	if out.Graph != nil {
		p.line("Episodes: %d", out.Graph.Episodes)
		p.line("Segments: %d", out.Graph.Segments)
	}

	if len(out.Metrics.Operations) == 0 {
		return nil
	}
	p.line("")
	p.title("Operations:")
	for _, op := range out.Metrics.Operations {
		p.line("- %s: %d calls, %d errors, avg %.1fms, max %dms", op.Name, op.Count, op.Errors, op.AvgTimeMs, op.MaxTimeMs)
	}
	return nil
}

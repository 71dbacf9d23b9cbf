package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/ranking"
	"github.com/raphaelgruber/podcastrag/internal/retrieval"
	"github.com/spf13/cobra"
)

var (
	searchTopK   int
	searchDepth  int
	searchHybrid bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find transcript segments without asking the language model",
	Long: `Find transcript segments by keyword, graph neighbourhood and embedding
similarity, deduplicated and ranked exactly as the ask command sees them.

Use 'ask' for an answer synthesized by the language model.

Examples:
  podcastrag search "fake news"
  podcastrag search "confirmation bias" --top-k 10 --depth 2
  podcastrag search "memory" --hybrid --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// SearchOutput is the --json shape of the search command.
type SearchOutput struct {
	Query    string           `json:"query"`
	Segments []models.Segment `json:"segments"`
	Stats    retrieval.Stats  `json:"stats"`
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "segments per pass (default: policy top_k)")
	searchCmd.Flags().IntVar(&searchDepth, "depth", 0, "graph expansion depth (default: policy expand_depth)")
	searchCmd.Flags().BoolVar(&searchHybrid, "hybrid", false, "always run the embedding pass")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := strings.Join(args, " ")

	if searchTopK > 0 {
		cfg.Policy.TopK = searchTopK
	}
	if searchDepth > 0 {
		cfg.Policy.ExpandDepth = searchDepth
	}
	if searchHybrid {
		cfg.Policy.AlwaysHybrid = true
	}
	if err := cfg.Policy.Validate(); err != nil {
		return err
	}

	a, err := getApp(ctx, false)
	if err != nil {
		return err
	}

	res := a.Engine.Retrieve(ctx, query)
	segs := ranking.Rank(ranking.Dedup(res.Segments))
	if res.Stats.Placeholder {
		segs = nil
	}

	p := newPrinter(os.Stdout)
	if jsonOutput {
		return p.json(SearchOutput{Query: query, Segments: nonNilSegments(segs), Stats: res.Stats})
	}

	if len(segs) == 0 {
		p.line("No segments found.")
		printStatsHint(p, res.Stats)
		return nil
	}

	p.title("Segments (%d):", len(segs))
	p.line("")
	for _, seg := range segs {
		heading := fmt.Sprintf("Episode %d, segment %d [%s]", seg.EpisodeNumber, seg.ChunkIndex, seg.Source)
		if seg.Similarity != nil {
			heading += fmt.Sprintf(" %.3f", *seg.Similarity)
		}
		p.cited("%s", heading)
		p.block(seg.Text)
		p.line("")
	}
	printStatsHint(p, res.Stats)
	return nil
}

func printStatsHint(p *printer, st retrieval.Stats) {
	if !verbose {
		return
	}
	p.hint("keyword %d, graph %d, embedding %d (skipped %d), fallback %t",
		st.Keyword, st.Graph, st.Embedding, st.SkippedEmbeddings, st.FallbackUsed)
	for _, e := range st.Errors {
		p.hint("error: %s", e)
	}
}

func nonNilSegments(segs []models.Segment) []models.Segment {
	if segs == nil {
		return []models.Segment{}
	}
	return segs
}

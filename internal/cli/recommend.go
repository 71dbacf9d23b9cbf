package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	recommendSeen  []int
	recommendLimit int
	communityLimit int
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <episode>",
	Short: "Recommend episodes similar to one you listened to",
	Long: `Recommend episodes connected to the given episode by similarity edges,
best first. Episodes passed with --seen are skipped.

Examples:
  podcastrag recommend 42
  podcastrag recommend 42 --seen 12,17 -n 3`,
	Args: cobra.ExactArgs(1),
	RunE: runRecommend,
}

var communityCmd = &cobra.Command{
	Use:   "community <id>",
	Short: "List the episodes of a topic community",
	Long: `List the episodes that belong to one community cluster of the graph.

Examples:
  podcastrag community 3
  podcastrag community 3 -n 50 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCommunity,
}

func init() {
	recommendCmd.Flags().IntSliceVar(&recommendSeen, "seen", nil, "episodes already heard")
	recommendCmd.Flags().IntVarP(&recommendLimit, "limit", "n", 5, "max recommendations")

	communityCmd.Flags().IntVarP(&communityLimit, "limit", "n", 20, "max episodes")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	episode, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("episode must be a number: %q", args[0])
	}

	a, err := getApp(ctx, false)
	if err != nil {
		return err
	}
	recs, err := a.Recommender.RecommendEpisodes(ctx, episode, recommendSeen, recommendLimit)
	if err != nil {
		return err
	}

	p := newPrinter(os.Stdout)
	if jsonOutput {
		return p.json(recs)
	}
	if len(recs) == 0 {
		p.line("No recommendations for episode %d.", episode)
		return nil
	}

	p.title("Similar to episode %d:", episode)
	for _, r := range recs {
		p.line("- Episode %d: %s (%.2f)", r.EpisodeNumber, r.Title, r.Score)
	}
	return nil
}

func runCommunity(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	community, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("community must be a number: %q", args[0])
	}

	a, err := getApp(ctx, false)
	if err != nil {
		return err
	}
	episodes, err := a.Recommender.CommunityEpisodes(ctx, community, communityLimit)
	if err != nil {
		return err
	}

	p := newPrinter(os.Stdout)
	if jsonOutput {
		return p.json(episodes)
	}
	if len(episodes) == 0 {
		p.line("No episodes in community %d.", community)
		return nil
	}

	p.title("Community %d (%d):", community, len(episodes))
	for _, ep := range episodes {
		p.line("- Episode %d: %s", ep.EpisodeNumber, ep.Title)
		if verbose && ep.URL != nil {
			p.hint("  %s", *ep.URL)
		}
	}
	return nil
}

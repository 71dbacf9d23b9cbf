package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	askLanguage string
	askSegments bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and get an answer with cited episodes",
	Long: `Ask a question about the podcast and get an answer synthesized by the
configured language model from retrieved transcript segments.

The answer language follows --language, or is detected from the question.
Very short questions get a clarification request instead of an answer.

Examples:
  podcastrag ask "Why do people share fake news?"
  podcastrag ask "O que é desinformação?" --language Portuguese
  podcastrag ask "What is confirmation bias?" --segments
  podcastrag ask "What is confirmation bias?" --server http://localhost:8484 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askLanguage, "language", "l", "", "answer language: Portuguese or English (default: detect)")
	askCmd.Flags().BoolVar(&askSegments, "segments", false, "also print the retrieved segments")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	req := pipeline.Request{
		Message:  strings.Join(args, " "),
		Language: askLanguage,
	}

	resp, err := ask(ctx, req)
	if err != nil {
		return err
	}

	p := newPrinter(os.Stdout)
	if jsonOutput {
		return p.json(resp)
	}
	printAnswer(p, resp, askSegments)
	return nil
}

// ask answers in-process, or through the server when --server is set.
func ask(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	if c := remote(); c != nil {
		resp, err := c.Ask(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("ask server: %w", err)
		}
		return resp, nil
	}

	a, err := getApp(ctx, true)
	if err != nil {
		return nil, err
	}
	resp := a.Pipeline.Run(ctx, req)
	return &resp, nil
}

func printAnswer(p *printer, resp *pipeline.Response, withSegments bool) {
	if resp.Error != "" {
		p.errorf("%s", resp.Response)
		if verbose {
			p.hint("error: %s (request %s)", resp.Error, resp.RequestID)
		}
		return
	}
	if resp.Clarification {
		p.hint("%s", resp.Response)
		return
	}

	p.line("%s", resp.Response)

	if withSegments && len(resp.Segments) > 0 {
		p.line("")
		p.title("Segments (%d):", len(resp.Segments))
		for _, seg := range resp.Segments {
			p.cited("Episode %d, segment %d [%s]", seg.EpisodeNumber, seg.ChunkIndex, seg.Source)
			p.block(seg.Text)
		}
	}
	if verbose {
		p.hint("request %s, stage %s, %d citations", resp.RequestID, resp.Stage, len(resp.Citations))
	}
}

// Package assembler packs ranked segments into a token-bounded context
// string for the language model.
package assembler

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/tokenizer"
)

// TruncationMarker is appended when packing stops early and the caller asked
// for it.
const TruncationMarker = "[Context truncated.]"

const blockSeparator = "\n"

// Options controls context packing.
type Options struct {
	MaxTokens        int
	IncludeURLs      bool
	TruncationMarker bool
}

// DefaultOptions returns a 2000 token budget with URLs in headers.
func DefaultOptions() Options {
	return Options{MaxTokens: 2000, IncludeURLs: true}
}

// Result is an assembled context.
type Result struct {
	Text      string
	Tokens    int
	Included  []models.SegmentKey
	Truncated bool
}

// Assembler renders segments into context blocks.
type Assembler struct {
	counter tokenizer.Counter
	opts    Options
}

// New creates an Assembler counting tokens with counter.
func New(counter tokenizer.Counter, opts Options) *Assembler {
	return &Assembler{counter: counter, opts: opts}
}

// Options returns the packing options.
func (a *Assembler) Options() Options {
	return a.opts
}

// Build packs segments in the given order. It stops at the first block that
// would push the total over MaxTokens; later blocks are not considered even
// if they would fit.
func (a *Assembler) Build(segments []models.Segment, metadata models.MetadataMap) Result {
	var (
		res   Result
		parts []string
	)

	for _, seg := range segments {
		block := a.Render(seg, metadata)
		cost := a.counter.Count(block)
		if len(parts) > 0 {
			cost += a.counter.Count(blockSeparator)
		}
		if res.Tokens+cost > a.opts.MaxTokens {
			res.Truncated = true
			break
		}
		parts = append(parts, block)
		res.Tokens += cost
		res.Included = append(res.Included, seg.Key())
	}

	if res.Truncated && a.opts.TruncationMarker {
		parts = append(parts, TruncationMarker)
	}
	res.Text = strings.Join(parts, blockSeparator)
	return res
}

// Render formats one segment block. The episode header is omitted when the
// episode has no metadata.
func (a *Assembler) Render(seg models.Segment, metadata models.MetadataMap) string {
	var b strings.Builder
	if meta, ok := metadata[seg.EpisodeNumber]; ok {
		fmt.Fprintf(&b, "Episode %d: %s", seg.EpisodeNumber, meta.Title)
		if a.opts.IncludeURLs && meta.URL != "" {
			fmt.Fprintf(&b, " (%s)", meta.URL)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Segment %d: %s\n", seg.ChunkIndex, seg.Text)
	return b.String()
}

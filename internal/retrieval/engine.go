// Package retrieval finds transcript segments for a question by combining a
// keyword pass, graph expansion and an embedding-similarity fallback.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"golang.org/x/sync/errgroup"
)

// Store is the read side of the graph store used by retrieval. The store
// adapter returns empty results on failure, so no errors are surfaced here.
type Store interface {
	FindSegmentsByKeyword(ctx context.Context, keyword string, limit int) []models.Segment
	FindAllSegmentEmbeddings(ctx context.Context) []models.SegmentEmbedding
	ExpandNeighborhood(ctx context.Context, episodeNumber, depth int) []models.GraphNode
}

// QueryEmbedder embeds the user question.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options tunes retrieval.
type Options struct {
	TopK        int
	ExpandDepth int
	// FallbackBelow triggers the embedding pass when keyword and graph
	// together found fewer distinct segments. Zero means TopK.
	FallbackBelow int
	// Dimension is the expected embedding length.
	Dimension int
	// AlwaysHybrid runs the embedding pass on every query, concurrently with
	// the keyword and graph passes.
	AlwaysHybrid bool
}

// DefaultOptions returns the stock retrieval settings.
func DefaultOptions() Options {
	return Options{TopK: 5, ExpandDepth: 1, Dimension: 384}
}

// Stats describes what each pass contributed.
type Stats struct {
	Keyword           int      `json:"keyword"`
	Graph             int      `json:"graph"`
	Embedding         int      `json:"embedding"`
	SkippedEmbeddings int      `json:"skipped_embeddings"`
	FallbackUsed      bool     `json:"fallback_used"`
	Placeholder       bool     `json:"placeholder"`
	Errors            []string `json:"errors,omitempty"`
}

// Result is the output of Retrieve.
type Result struct {
	Segments []models.Segment
	Stats    Stats
}

// Engine runs hybrid retrieval.
type Engine struct {
	store    Store
	embedder QueryEmbedder
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewEngine creates an engine. embedder may be nil, which disables the
// embedding pass.
func NewEngine(store Store, embedder QueryEmbedder, opts Options, logger *slog.Logger, m *metrics.Collector) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.ExpandDepth <= 0 {
		opts.ExpandDepth = 1
	}
	if opts.FallbackBelow <= 0 {
		opts.FallbackBelow = opts.TopK
	}
	if opts.Dimension <= 0 {
		opts.Dimension = 384
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, embedder: embedder, opts: opts, logger: logger, metrics: m}
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Retrieve returns at most TopK distinct segments for query, or the single
// placeholder segment when nothing is found. Keyword hits come first, then
// graph neighbours, then embedding matches.
func (e *Engine) Retrieve(ctx context.Context, query string) Result {
	start := time.Now()
	defer func() { e.metrics.RecordTiming(metrics.OpRetrieval, time.Since(start)) }()

	var res Result
	if e.opts.AlwaysHybrid {
		res = e.retrieveConcurrent(ctx, query)
	} else {
		res = e.retrieveSequential(ctx, query)
	}

	if len(res.Segments) == 0 {
		res.Segments = []models.Segment{models.Placeholder()}
		res.Stats.Placeholder = true
	}

	e.logger.Debug("retrieval complete",
		"keyword", res.Stats.Keyword,
		"graph", res.Stats.Graph,
		"embedding", res.Stats.Embedding,
		"skipped_embeddings", res.Stats.SkippedEmbeddings,
		"fallback", res.Stats.FallbackUsed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (e *Engine) retrieveSequential(ctx context.Context, query string) Result {
	var stats Stats
	m := newMerger(e.opts.TopK)

	kw, err := guard("keyword", func() []models.Segment { return e.keywordPass(ctx, query) })
	stats.addErr(err)
	stats.Keyword = m.add(kw)

	graph, err := guard("graph", func() []models.Segment { return e.graphPass(ctx, kw) })
	stats.addErr(err)
	stats.Graph = m.add(graph)

	if m.len() < e.opts.FallbackBelow {
		stats.FallbackUsed = true
		emb, skipped, err := e.embeddingPass(ctx, query)
		stats.addErr(err)
		stats.SkippedEmbeddings = skipped
		stats.Embedding = m.add(emb)
	}

	return Result{Segments: m.result(), Stats: stats}
}

func (e *Engine) retrieveConcurrent(ctx context.Context, query string) Result {
	var (
		kw, graph, emb      []models.Segment
		kwErr, gErr, embErr error
		skipped             int
	)

	var g errgroup.Group
	g.Go(func() error {
		kw, kwErr = guard("keyword", func() []models.Segment { return e.keywordPass(ctx, query) })
		graph, gErr = guard("graph", func() []models.Segment { return e.graphPass(ctx, kw) })
		return nil
	})
	g.Go(func() error {
		emb, skipped, embErr = e.embeddingPass(ctx, query)
		return nil
	})
	_ = g.Wait()

	stats := Stats{FallbackUsed: true, SkippedEmbeddings: skipped}
	stats.addErr(kwErr)
	stats.addErr(gErr)
	stats.addErr(embErr)

	m := newMerger(e.opts.TopK)
	stats.Keyword = m.add(kw)
	stats.Graph = m.add(graph)
	stats.Embedding = m.add(emb)

	return Result{Segments: m.result(), Stats: stats}
}

func (e *Engine) keywordPass(ctx context.Context, query string) []models.Segment {
	segs := e.store.FindSegmentsByKeyword(ctx, query, e.opts.TopK)
	for i := range segs {
		segs[i].Source = models.SourceKeyword
	}
	return segs
}

// graphPass expands around each distinct episode of the keyword hits, in the
// order the episodes first appear.
func (e *Engine) graphPass(ctx context.Context, seeds []models.Segment) []models.Segment {
	seen := make(map[int]bool)
	var out []models.Segment
	for _, s := range seeds {
		if s.Fallback || seen[s.EpisodeNumber] {
			continue
		}
		seen[s.EpisodeNumber] = true

		for _, node := range e.store.ExpandNeighborhood(ctx, s.EpisodeNumber, e.opts.ExpandDepth) {
			if seg, ok := node.Segment(); ok {
				out = append(out, seg)
			}
		}
	}
	return out
}

func (e *Engine) embeddingPass(ctx context.Context, query string) (segs []models.Segment, skipped int, err error) {
	defer func() {
		if r := recover(); r != nil {
			segs, err = nil, fmt.Errorf("embedding pass panicked: %v", r)
		}
	}()

	if e.embedder == nil {
		return nil, 0, errors.New("embedding pass: no embedder configured")
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed, skipping similarity pass", "error", err)
		return nil, 0, fmt.Errorf("embedding pass: %w", err)
	}

	pool := e.store.FindAllSegmentEmbeddings(ctx)
	scored, skipped := TopSimilar(vec, pool, e.opts.Dimension, e.opts.TopK)
	if skipped > 0 {
		e.logger.Warn("skipped malformed embeddings", "count", skipped, "pool", len(pool))
	}

	segs = make([]models.Segment, len(scored))
	for i, s := range scored {
		segs[i] = s.Segment
	}
	return segs, skipped, nil
}

// guard runs a pass and turns a panic into an error so one broken pass
// cannot discard the results of the others.
func guard(pass string, fn func() []models.Segment) (out []models.Segment, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%s pass panicked: %v", pass, r)
		}
	}()
	return fn(), nil
}

func (s *Stats) addErr(err error) {
	if err != nil {
		s.Errors = append(s.Errors, err.Error())
	}
}

// merger accumulates segments keyed by (episode, chunk); the first
// occurrence of a key wins.
type merger struct {
	limit int
	seen  map[models.SegmentKey]bool
	out   []models.Segment
}

func newMerger(limit int) *merger {
	return &merger{limit: limit, seen: make(map[models.SegmentKey]bool)}
}

// add appends unseen segments and returns how many were new. Segments past
// the limit are still counted as seen but not kept.
func (m *merger) add(segs []models.Segment) int {
	added := 0
	for _, s := range segs {
		k := s.Key()
		if m.seen[k] {
			continue
		}
		m.seen[k] = true
		if len(m.out) < m.limit {
			m.out = append(m.out, s)
			added++
		}
	}
	return added
}

// len counts distinct keys seen so far, including those past the limit.
func (m *merger) len() int {
	return len(m.seen)
}

func (m *merger) result() []models.Segment {
	if m.out == nil {
		return []models.Segment{}
	}
	return m.out
}

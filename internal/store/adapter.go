// Package store adapts the graph database to the read operations retrieval
// needs. Every operation degrades to an empty result when the database fails;
// callers learn about failures through the log, metrics and OnFailure hook.
// A database that was down at startup is dialed again on later calls.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/models"
)

// ErrNotConnected is reported when the adapter has no querier.
var ErrNotConnected = errors.New("graph store not connected")

// Querier is the database surface the adapter reads from. *db.Client satisfies it.
type Querier interface {
	QuerySegmentsByKeyword(ctx context.Context, keyword string, limit int) ([]models.Segment, error)
	QueryAllSegmentEmbeddings(ctx context.Context) ([]models.SegmentEmbedding, error)
	QueryExpandNeighborhood(ctx context.Context, episodeNumber, depth int) ([]models.GraphNode, error)
	QueryEpisodeMetadata(ctx context.Context, episodeNumbers []int) (models.MetadataMap, error)
	QuerySimilarEpisodes(ctx context.Context, episodeNumber int, exclude []int, limit int) ([]models.SimilarEpisode, error)
	QueryCommunityEpisodes(ctx context.Context, community, limit int) ([]models.Episode, error)
}

// Operation names reported to OnFailure and metrics.
const (
	OpKeyword    = "find_segments_by_keyword"
	OpEmbeddings = "find_all_segment_embeddings"
	OpExpand     = "expand_neighborhood"
	OpMetadata   = "fetch_episode_metadata"
	OpSimilar    = "find_similar_episodes"
	OpCommunity  = "find_community_episodes"
)

// DefaultRedialInterval is the minimum time between two dial attempts.
const DefaultRedialInterval = 5 * time.Second

// Dialer opens a querier. It must return a nil interface on error.
type Dialer func(ctx context.Context) (Querier, error)

// Options configures an Adapter.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	// OnFailure is called after any query fails, before the empty result is returned.
	OnFailure func(op string, err error)
	// Dial attaches a querier on demand while none is attached. Without it a
	// nil querier stays unavailable.
	Dial Dialer
	// RedialInterval throttles Dial. Zero means DefaultRedialInterval.
	RedialInterval time.Duration
}

// Adapter is the graph store adapter.
type Adapter struct {
	logger    *slog.Logger
	metrics   *metrics.Collector
	onFailure func(op string, err error)
	failures  atomic.Int64

	dial     Dialer
	interval time.Duration

	mu       sync.Mutex
	q        Querier
	dialing  bool
	lastDial time.Time
}

// New wraps q. A nil q is dialed lazily through opts.Dial.
func New(q Querier, opts Options) *Adapter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.RedialInterval
	if interval <= 0 {
		interval = DefaultRedialInterval
	}
	return &Adapter{
		q:         q,
		logger:    logger,
		metrics:   opts.Metrics,
		onFailure: opts.OnFailure,
		dial:      opts.Dial,
		interval:  interval,
	}
}

// Connected reports whether a querier is attached.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.q != nil
}

// Connect dials immediately, ignoring the redial interval. It is a no-op when
// a querier is already attached.
func (a *Adapter) Connect(ctx context.Context) error {
	_, err := a.querier(ctx, true)
	return err
}

// Querier returns the attached querier, dialing if the interval allows.
func (a *Adapter) Querier(ctx context.Context) (Querier, error) {
	return a.querier(ctx, false)
}

// querier never holds the lock while dialing; concurrent callers during a
// dial see ErrNotConnected.
func (a *Adapter) querier(ctx context.Context, force bool) (Querier, error) {
	a.mu.Lock()
	if a.q != nil {
		q := a.q
		a.mu.Unlock()
		return q, nil
	}
	if a.dial == nil || a.dialing || (!force && !a.lastDial.IsZero() && time.Since(a.lastDial) < a.interval) {
		a.mu.Unlock()
		return nil, ErrNotConnected
	}
	a.dialing = true
	a.lastDial = time.Now()
	a.mu.Unlock()

	q, err := a.dial(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.dialing = false
	if err != nil {
		a.logger.Warn("graph store dial failed", "error", err, "retry_in", a.interval)
		return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
	}
	if a.dial == nil {
		// closed while dialing
		if c, ok := q.(interface{ Close(context.Context) error }); ok {
			_ = c.Close(context.WithoutCancel(ctx))
		}
		return nil, ErrNotConnected
	}
	a.q = q
	a.logger.Info("graph store connected")
	return q, nil
}

// Close closes the attached querier if it can be closed.
func (a *Adapter) Close(ctx context.Context) error {
	a.mu.Lock()
	q := a.q
	a.q = nil
	a.dial = nil
	a.mu.Unlock()
	if c, ok := q.(interface{ Close(context.Context) error }); ok {
		return c.Close(ctx)
	}
	return nil
}

// Failures returns how many queries have failed since creation.
func (a *Adapter) Failures() int64 {
	return a.failures.Load()
}

func (a *Adapter) fail(op string, err error, start time.Time) {
	a.failures.Add(1)
	a.metrics.RecordError(metrics.OpStoreQuery, time.Since(start))
	a.metrics.RecordTiming(metrics.OpStoreFailure, time.Since(start))
	a.logger.Error("graph store query failed", "op", op, "error", err)
	if a.onFailure != nil {
		a.onFailure(op, err)
	}
}

func (a *Adapter) ok(start time.Time) {
	a.metrics.RecordTiming(metrics.OpStoreQuery, time.Since(start))
}

// run executes query and converts any failure into empty.
func run[T any](ctx context.Context, a *Adapter, op string, empty T, query func(Querier) (T, error)) T {
	start := time.Now()
	q, err := a.querier(ctx, false)
	if err != nil {
		a.fail(op, err, start)
		return empty
	}
	res, err := query(q)
	if err != nil {
		a.fail(op, err, start)
		return empty
	}
	a.ok(start)
	return res
}

// FindSegmentsByKeyword returns up to limit segments containing keyword,
// case-insensitively.
func (a *Adapter) FindSegmentsByKeyword(ctx context.Context, keyword string, limit int) []models.Segment {
	segs := run(ctx, a, OpKeyword, []models.Segment{}, func(q Querier) ([]models.Segment, error) {
		return q.QuerySegmentsByKeyword(ctx, keyword, limit)
	})
	for i := range segs {
		segs[i].Source = models.SourceKeyword
	}
	return nonNil(segs)
}

// FindAllSegmentEmbeddings returns the full candidate pool for similarity
// scoring. Embeddings are not validated here.
func (a *Adapter) FindAllSegmentEmbeddings(ctx context.Context) []models.SegmentEmbedding {
	return nonNil(run(ctx, a, OpEmbeddings, []models.SegmentEmbedding{}, func(q Querier) ([]models.SegmentEmbedding, error) {
		return q.QueryAllSegmentEmbeddings(ctx)
	}))
}

// ExpandNeighborhood returns the nodes reachable from episodeNumber within depth hops.
func (a *Adapter) ExpandNeighborhood(ctx context.Context, episodeNumber, depth int) []models.GraphNode {
	return nonNil(run(ctx, a, OpExpand, []models.GraphNode{}, func(q Querier) ([]models.GraphNode, error) {
		return q.QueryExpandNeighborhood(ctx, episodeNumber, depth)
	}))
}

// FetchEpisodeMetadata returns title and URL for the requested episodes.
// An empty request returns an empty map without touching the database.
func (a *Adapter) FetchEpisodeMetadata(ctx context.Context, episodeNumbers []int) models.MetadataMap {
	if len(episodeNumbers) == 0 {
		return models.MetadataMap{}
	}
	meta := run(ctx, a, OpMetadata, models.MetadataMap{}, func(q Querier) (models.MetadataMap, error) {
		return q.QueryEpisodeMetadata(ctx, episodeNumbers)
	})
	if meta == nil {
		return models.MetadataMap{}
	}
	return meta
}

// FindSimilarEpisodes returns up to limit SIMILAR_TO neighbours not in exclude.
func (a *Adapter) FindSimilarEpisodes(ctx context.Context, episodeNumber int, exclude []int, limit int) []models.SimilarEpisode {
	return nonNil(run(ctx, a, OpSimilar, []models.SimilarEpisode{}, func(q Querier) ([]models.SimilarEpisode, error) {
		return q.QuerySimilarEpisodes(ctx, episodeNumber, exclude, limit)
	}))
}

// FindCommunityEpisodes lists episodes in a community cluster.
func (a *Adapter) FindCommunityEpisodes(ctx context.Context, community, limit int) []models.Episode {
	return nonNil(run(ctx, a, OpCommunity, []models.Episode{}, func(q Querier) ([]models.Episode, error) {
		return q.QueryCommunityEpisodes(ctx, community, limit)
	}))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

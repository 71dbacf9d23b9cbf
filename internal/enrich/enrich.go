// Package enrich attaches episode titles and URLs to retrieved segments.
package enrich

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/raphaelgruber/podcastrag/internal/models"
)

// MetadataSource fetches episode metadata. The store adapter satisfies it.
type MetadataSource interface {
	FetchEpisodeMetadata(ctx context.Context, episodeNumbers []int) models.MetadataMap
}

const defaultCacheSize = 1024

// Enricher looks up metadata for the episodes of a segment list.
type Enricher struct {
	source MetadataSource
	cache  *expirable.LRU[int, models.EpisodeMetadata]
}

// New creates an Enricher. A positive ttl enables a bounded cache; entries
// older than ttl are fetched again.
func New(source MetadataSource, ttl time.Duration) *Enricher {
	e := &Enricher{source: source}
	if ttl > 0 {
		e.cache = expirable.NewLRU[int, models.EpisodeMetadata](defaultCacheSize, nil, ttl)
	}
	return e
}

// EpisodeNumbers returns the distinct real episodes referenced by segments,
// ascending. The placeholder segment is ignored.
func EpisodeNumbers(segments []models.Segment) []int {
	var eps []int
	for _, s := range segments {
		if s.Fallback || s.Source == models.SourcePlaceholder {
			continue
		}
		eps = append(eps, s.EpisodeNumber)
	}
	slices.Sort(eps)
	return slices.Compact(eps)
}

// Enrich returns metadata for every episode referenced by segments that the
// store knows about. Episodes it does not know are absent from the map.
func (e *Enricher) Enrich(ctx context.Context, segments []models.Segment) models.MetadataMap {
	eps := EpisodeNumbers(segments)
	if len(eps) == 0 {
		return models.MetadataMap{}
	}
	if e.cache == nil {
		return e.source.FetchEpisodeMetadata(ctx, eps)
	}

	meta := models.MetadataMap{}
	var missing []int
	for _, ep := range eps {
		if m, ok := e.cache.Get(ep); ok {
			meta[ep] = m
			continue
		}
		missing = append(missing, ep)
	}
	if len(missing) == 0 {
		return meta
	}

	for ep, m := range e.source.FetchEpisodeMetadata(ctx, missing) {
		e.cache.Add(ep, m)
		meta[ep] = m
	}
	return meta
}

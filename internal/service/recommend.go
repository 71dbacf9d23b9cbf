// Package service holds operations exposed to the outer surfaces that are not
// part of question answering.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/raphaelgruber/podcastrag/internal/models"
)

// ErrInvalidInput is returned for out-of-range arguments.
var ErrInvalidInput = errors.New("invalid input")

const (
	DefaultRecommendations = 5
	DefaultCommunityLimit  = 20
	MaxLimit               = 100
)

// EpisodeStore is the part of the store adapter used for browsing episodes.
type EpisodeStore interface {
	FindSimilarEpisodes(ctx context.Context, episodeNumber int, exclude []int, limit int) []models.SimilarEpisode
	FindCommunityEpisodes(ctx context.Context, community, limit int) []models.Episode
}

// Recommender suggests episodes over SIMILAR_TO edges and community clusters.
type Recommender struct {
	store EpisodeStore
}

// NewRecommender creates a Recommender.
func NewRecommender(store EpisodeStore) *Recommender {
	return &Recommender{store: store}
}

// RecommendEpisodes returns up to n episodes similar to current, best score
// first, skipping current and every episode in seen. n <= 0 means the default.
func (r *Recommender) RecommendEpisodes(ctx context.Context, current int, seen []int, n int) ([]models.SimilarEpisode, error) {
	if current <= 0 {
		return nil, fmt.Errorf("%w: episode number must be positive, got %d", ErrInvalidInput, current)
	}
	n, err := limit(n, DefaultRecommendations)
	if err != nil {
		return nil, err
	}

	exclude := append(slices.Clone(seen), current)
	slices.Sort(exclude)
	exclude = slices.Compact(exclude)

	recs := r.store.FindSimilarEpisodes(ctx, current, exclude, n)
	out := recs[:0]
	for _, rec := range recs {
		if _, found := slices.BinarySearch(exclude, rec.EpisodeNumber); found {
			continue
		}
		out = append(out, rec)
	}
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// CommunityEpisodes lists up to n episodes of a community cluster.
func (r *Recommender) CommunityEpisodes(ctx context.Context, community, n int) ([]models.Episode, error) {
	n, err := limit(n, DefaultCommunityLimit)
	if err != nil {
		return nil, err
	}
	return r.store.FindCommunityEpisodes(ctx, community, n), nil
}

func limit(n, def int) (int, error) {
	switch {
	case n <= 0:
		return def, nil
	case n > MaxLimit:
		return 0, fmt.Errorf("%w: limit %d exceeds %d", ErrInvalidInput, n, MaxLimit)
	}
	return n, nil
}

// Package ranking deduplicates and orders retrieved segments.
package ranking

import (
	"sort"

	"github.com/raphaelgruber/podcastrag/internal/models"
)

// Dedup drops later segments that share an (episode, chunk) key with an
// earlier one. Order is preserved and the input is not modified.
func Dedup(segments []models.Segment) []models.Segment {
	seen := make(map[models.SegmentKey]bool, len(segments))
	out := make([]models.Segment, 0, len(segments))
	for _, s := range segments {
		if seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		out = append(out, s)
	}
	return out
}

// Rank orders segments by similarity, highest first, when at least one
// segment carries a score. Unscored segments follow in their original order.
// Without any score the input order is returned unchanged.
func Rank(segments []models.Segment) []models.Segment {
	out := append([]models.Segment(nil), segments...)
	if !anyScored(out) {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Scored() && b.Scored():
			return *a.Similarity > *b.Similarity
		case a.Scored():
			return true
		default:
			return false
		}
	})
	return out
}

func anyScored(segments []models.Segment) bool {
	for _, s := range segments {
		if s.Scored() {
			return true
		}
	}
	return false
}

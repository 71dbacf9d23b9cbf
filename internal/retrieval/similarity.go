package retrieval

import (
	"math"
	"sort"

	"github.com/raphaelgruber/podcastrag/internal/models"
)

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for zero-norm vectors or mismatched lengths.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors just past 1.
	return max(-1, min(1, sim))
}

// ScoredSegment is a segment with its similarity to the query.
type ScoredSegment struct {
	Segment models.Segment
	Score   float64
}

// TopSimilar scores every valid embedding in pool against query and returns
// the k best, highest first. Equal scores keep pool order. The second return
// value counts embeddings skipped as malformed.
func TopSimilar(query []float32, pool []models.SegmentEmbedding, dim, k int) ([]ScoredSegment, int) {
	scored := make([]ScoredSegment, 0, len(pool))
	skipped := 0

	for _, row := range pool {
		vec, err := models.ParseEmbedding(row.Embedding, dim)
		if err != nil {
			skipped++
			continue
		}
		scored = append(scored, ScoredSegment{
			Segment: models.Segment{
				EpisodeNumber: row.EpisodeNumber,
				ChunkIndex:    row.ChunkIndex,
				Text:          row.Text,
				Source:        models.SourceEmbedding,
			},
			Score: CosineSimilarity(query, vec),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		score := scored[i].Score
		scored[i].Segment.Similarity = &score
	}
	return scored, skipped
}

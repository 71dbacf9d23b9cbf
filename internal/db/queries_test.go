//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPing(t *testing.T) {
	require.NoError(t, testDB.Ping(testCtx(t)))
}

func TestConnect(t *testing.T) {
	ctx := testCtx(t)

	c, err := Connect(ctx, testDB.cfg, nil)
	require.NoError(t, err)
	defer c.Close(context.Background())

	require.NoError(t, c.Ping(ctx))
	counts, err := c.QueryGraphCounts(ctx)
	require.NoError(t, err)
	assert.Positive(t, counts.Segments)
}

func TestQuerySegmentsByKeyword(t *testing.T) {
	ctx := testCtx(t)

	segs, err := testDB.QuerySegmentsByKeyword(ctx, "FAKE NEWS", 10)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, models.SegmentKey{EpisodeNumber: 280, ChunkIndex: 0}, segs[0].Key())
	assert.Equal(t, models.SegmentKey{EpisodeNumber: 280, ChunkIndex: 1}, segs[1].Key())

	limited, err := testDB.QuerySegmentsByKeyword(ctx, "fake news", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := testDB.QuerySegmentsByKeyword(ctx, "astronomia", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQueryAllSegmentEmbeddings(t *testing.T) {
	rows, err := testDB.QueryAllSegmentEmbeddings(testCtx(t))
	require.NoError(t, err)
	require.Len(t, rows, 7)

	valid := 0
	for _, r := range rows {
		if _, err := models.ParseEmbedding(r.Embedding, 3); err == nil {
			valid++
		}
	}
	assert.Equal(t, 6, valid, "the malformed vector must be rejected")
}

func TestQueryExpandNeighborhood(t *testing.T) {
	ctx := testCtx(t)

	t.Run("depth 1", func(t *testing.T) {
		nodes, err := testDB.QueryExpandNeighborhood(ctx, 280, 1)
		require.NoError(t, err)

		episodes := map[int]bool{}
		for _, n := range nodes {
			episodes[n.EpisodeNumber] = true
		}
		assert.Equal(t, map[int]bool{281: true, 282: true, 283: true}, episodes)

		var withText int
		for _, n := range nodes {
			if _, ok := n.Segment(); ok {
				withText++
			}
		}
		assert.Equal(t, 4, withText)
	})

	t.Run("depth 2 reaches second hop", func(t *testing.T) {
		nodes, err := testDB.QueryExpandNeighborhood(ctx, 280, 2)
		require.NoError(t, err)

		var found bool
		for _, n := range nodes {
			if n.EpisodeNumber == 284 {
				found = true
			}
			assert.NotEqual(t, 280, n.EpisodeNumber, "start episode is excluded")
		}
		assert.True(t, found)
	})

	t.Run("leaf episode", func(t *testing.T) {
		nodes, err := testDB.QueryExpandNeighborhood(ctx, 284, 1)
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})
}

func TestQueryEpisodeMetadata(t *testing.T) {
	ctx := testCtx(t)

	meta, err := testDB.QueryEpisodeMetadata(ctx, []int{280, 282, 999})
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, "Por Que As Pessoas Compartilham Fake News", meta[280].Title)
	assert.Equal(t, "https://example.com/280", meta[280].URL)
	assert.Empty(t, meta[282].URL)

	empty, err := testDB.QueryEpisodeMetadata(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQuerySimilarEpisodes(t *testing.T) {
	ctx := testCtx(t)

	similar, err := testDB.QuerySimilarEpisodes(ctx, 280, nil, 5)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	assert.Equal(t, 281, similar[0].EpisodeNumber)
	assert.InDelta(t, 0.9, similar[0].Score, 1e-9)
	assert.Equal(t, 282, similar[1].EpisodeNumber)

	excluded, err := testDB.QuerySimilarEpisodes(ctx, 280, []int{281}, 5)
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	assert.Equal(t, 282, excluded[0].EpisodeNumber)
}

func TestQueryCommunityEpisodes(t *testing.T) {
	eps, err := testDB.QueryCommunityEpisodes(testCtx(t), 1, 10)
	require.NoError(t, err)

	var numbers []int
	for _, e := range eps {
		numbers = append(numbers, e.EpisodeNumber)
	}
	assert.Equal(t, []int{280, 281, 284}, numbers)
}

func TestQueryGraphCounts(t *testing.T) {
	counts, err := testDB.QueryGraphCounts(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, GraphCounts{Episodes: 5, Segments: 7}, counts)
}

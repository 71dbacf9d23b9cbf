package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	known map[int]models.EpisodeMetadata
	calls [][]int
}

func (f *fakeSource) FetchEpisodeMetadata(_ context.Context, eps []int) models.MetadataMap {
	f.calls = append(f.calls, eps)
	out := models.MetadataMap{}
	for _, ep := range eps {
		if m, ok := f.known[ep]; ok {
			out[ep] = m
		}
	}
	return out
}

func newSource() *fakeSource {
	return &fakeSource{known: map[int]models.EpisodeMetadata{
		280: {Title: "Por Que As Pessoas Compartilham Fake News", URL: "https://example.com/280"},
		281: {Title: "Redes Sociais"},
	}}
}

func segs(eps ...int) []models.Segment {
	out := make([]models.Segment, len(eps))
	for i, ep := range eps {
		out[i] = models.Segment{EpisodeNumber: ep, ChunkIndex: i}
	}
	return out
}

func TestEnrich(t *testing.T) {
	src := newSource()
	e := New(src, 0)

	meta := e.Enrich(context.Background(), segs(281, 280, 281, 999))

	require.Len(t, meta, 2)
	assert.Equal(t, "Redes Sociais", meta[281].Title)
	assert.Empty(t, meta[281].URL)
	_, ok := meta[999]
	assert.False(t, ok, "unknown episodes are simply absent")
	assert.Equal(t, [][]int{{280, 281, 999}}, src.calls)
}

func TestEnrichSkipsPlaceholder(t *testing.T) {
	src := newSource()
	meta := New(src, 0).Enrich(context.Background(), []models.Segment{models.Placeholder()})

	assert.Empty(t, meta)
	assert.Empty(t, src.calls, "no store call for an empty episode set")
}

func TestEnrichCache(t *testing.T) {
	src := newSource()
	e := New(src, time.Minute)
	ctx := context.Background()

	first := e.Enrich(ctx, segs(280, 281))
	second := e.Enrich(ctx, segs(280, 281, 282))

	assert.Equal(t, first[280], second[280])
	assert.Equal(t, [][]int{{280, 281}, {282}}, src.calls, "only misses reach the store")

	// 282 is unknown, so it is not cached and is asked for again.
	e.Enrich(ctx, segs(282))
	assert.Len(t, src.calls, 3)
}

func TestEpisodeNumbers(t *testing.T) {
	assert.Equal(t, []int{1, 5, 9}, EpisodeNumbers(segs(9, 1, 5, 9, 1)))
	assert.Empty(t, EpisodeNumbers(nil))
}

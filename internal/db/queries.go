package db

import (
	"context"
	"fmt"
	"slices"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// MaxExpandDepth bounds neighbourhood expansion.
const MaxExpandDepth = 5

// QuerySegmentsByKeyword returns up to limit segments whose text contains
// keyword, compared case-insensitively.
func (c *Client) QuerySegmentsByKeyword(ctx context.Context, keyword string, limit int) ([]models.Segment, error) {
	sql := `
		SELECT episode_number, chunk_index, text FROM segment
		WHERE string::contains(string::lowercase(text), string::lowercase($keyword))
		ORDER BY episode_number, chunk_index
		LIMIT $limit
	`

	results, err := surrealdb.Query[[]models.Segment](ctx, c.db, sql, map[string]any{
		"keyword": keyword,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("segments by keyword: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Segment{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryAllSegmentEmbeddings scans every segment with its raw embedding.
// Rows come back in (episode_number, chunk_index) order so ties in similarity
// resolve the same way on every call.
func (c *Client) QueryAllSegmentEmbeddings(ctx context.Context) ([]models.SegmentEmbedding, error) {
	sql := `
		SELECT episode_number, chunk_index, text, embedding FROM segment
		ORDER BY episode_number, chunk_index
	`

	results, err := surrealdb.Query[[]models.SegmentEmbedding](ctx, c.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("segment embeddings: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.SegmentEmbedding{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryExpandNeighborhood walks outgoing similar_to and references_episode
// edges from episodeNumber for up to depth hops and returns every reached
// episode followed by its segments. The start episode is not included.
func (c *Client) QueryExpandNeighborhood(ctx context.Context, episodeNumber, depth int) ([]models.GraphNode, error) {
	depth = min(max(depth, 1), MaxExpandDepth)

	visited := map[int]bool{episodeNumber: true}
	frontier := []int{episodeNumber}
	var reached []int

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		neighbours, err := c.queryNeighbours(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []int
		for _, n := range neighbours {
			if visited[n] {
				continue
			}
			visited[n] = true
			next = append(next, n)
		}
		reached = append(reached, next...)
		frontier = next
	}

	if len(reached) == 0 {
		return []models.GraphNode{}, nil
	}
	return c.queryNodes(ctx, reached)
}

// queryNeighbours returns the one-hop neighbours of frontier, sorted.
func (c *Client) queryNeighbours(ctx context.Context, frontier []int) ([]int, error) {
	sql := `
		SELECT VALUE array::concat(
			->similar_to->episode.episode_number,
			->references_episode->episode.episode_number
		) FROM episode WHERE episode_number IN $frontier
	`

	results, err := surrealdb.Query[[][]int](ctx, c.db, sql, map[string]any{"frontier": frontier})
	if err != nil {
		return nil, fmt.Errorf("expand neighbours: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	var out []int
	for _, row := range (*results)[0].Result {
		out = append(out, row...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// queryNodes loads the episode and segment nodes for the reached episodes,
// keeping the order in which episodes were reached.
func (c *Client) queryNodes(ctx context.Context, episodes []int) ([]models.GraphNode, error) {
	vars := map[string]any{"eps": episodes}

	epResults, err := surrealdb.Query[[]models.Episode](ctx, c.db,
		`SELECT episode_number, title FROM episode WHERE episode_number IN $eps`, vars)
	if err != nil {
		return nil, fmt.Errorf("expand episodes: %w", wrapQueryError(err))
	}
	segResults, err := surrealdb.Query[[]models.Segment](ctx, c.db, `
		SELECT episode_number, chunk_index, text FROM segment
		WHERE episode_number IN $eps
		ORDER BY episode_number, chunk_index
	`, vars)
	if err != nil {
		return nil, fmt.Errorf("expand segments: %w", wrapQueryError(err))
	}

	var eps []models.Episode
	if epResults != nil && len(*epResults) > 0 {
		eps = (*epResults)[0].Result
	}
	var segs []models.Segment
	if segResults != nil && len(*segResults) > 0 {
		segs = (*segResults)[0].Result
	}

	titles := make(map[int]string, len(eps))
	for _, e := range eps {
		titles[e.EpisodeNumber] = e.Title
	}
	byEpisode := make(map[int][]models.Segment)
	for _, s := range segs {
		byEpisode[s.EpisodeNumber] = append(byEpisode[s.EpisodeNumber], s)
	}

	nodes := make([]models.GraphNode, 0, len(eps)+len(segs))
	for _, ep := range episodes {
		title, ok := titles[ep]
		if !ok {
			continue
		}
		nodes = append(nodes, models.GraphNode{Kind: models.NodeEpisode, EpisodeNumber: ep, Title: &title})
		for _, s := range byEpisode[ep] {
			chunk, text := s.ChunkIndex, s.Text
			nodes = append(nodes, models.GraphNode{
				Kind:          models.NodeSegment,
				EpisodeNumber: ep,
				ChunkIndex:    &chunk,
				Text:          &text,
			})
		}
	}
	return nodes, nil
}

// QueryEpisodeMetadata returns title and URL for each requested episode that
// exists. Missing episodes are absent from the map.
func (c *Client) QueryEpisodeMetadata(ctx context.Context, episodeNumbers []int) (models.MetadataMap, error) {
	if len(episodeNumbers) == 0 {
		return models.MetadataMap{}, nil
	}

	sql := `SELECT episode_number, title, url FROM episode WHERE episode_number IN $eps`

	results, err := surrealdb.Query[[]models.Episode](ctx, c.db, sql, map[string]any{"eps": episodeNumbers})
	if err != nil {
		return nil, fmt.Errorf("episode metadata: %w", wrapQueryError(err))
	}

	meta := models.MetadataMap{}
	if results == nil || len(*results) == 0 {
		return meta, nil
	}
	for _, e := range (*results)[0].Result {
		m := models.EpisodeMetadata{Title: e.Title}
		if e.URL != nil {
			m.URL = *e.URL
		}
		meta[e.EpisodeNumber] = m
	}
	return meta, nil
}

// QuerySimilarEpisodes returns the strongest similar_to neighbours of an
// episode, skipping exclude. Ties are broken by episode number.
func (c *Client) QuerySimilarEpisodes(ctx context.Context, episodeNumber int, exclude []int, limit int) ([]models.SimilarEpisode, error) {
	if limit <= 0 {
		return []models.SimilarEpisode{}, nil
	}
	if exclude == nil {
		exclude = []int{}
	}

	// Over-fetch so the client-side exclusion below still leaves limit rows.
	sql := `
		SELECT out.episode_number AS episode_number, out.title AS title, score
		FROM similar_to
		WHERE in.episode_number = $ep AND out.episode_number NOTINSIDE $exclude
		ORDER BY score DESC, episode_number ASC
		LIMIT $fetch
	`

	results, err := surrealdb.Query[[]models.SimilarEpisode](ctx, c.db, sql, map[string]any{
		"ep":      episodeNumber,
		"exclude": exclude,
		"fetch":   limit * 3,
	})
	if err != nil {
		return nil, fmt.Errorf("similar episodes: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.SimilarEpisode{}, nil
	}

	out := make([]models.SimilarEpisode, 0, limit)
	for _, e := range (*results)[0].Result {
		if e.EpisodeNumber == episodeNumber || slices.Contains(exclude, e.EpisodeNumber) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// QueryCommunityEpisodes lists episodes assigned to a community cluster.
func (c *Client) QueryCommunityEpisodes(ctx context.Context, community, limit int) ([]models.Episode, error) {
	sql := `
		SELECT episode_number, title, url, community FROM episode
		WHERE community = $community
		ORDER BY episode_number
		LIMIT $limit
	`

	results, err := surrealdb.Query[[]models.Episode](ctx, c.db, sql, map[string]any{
		"community": community,
		"limit":     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("community episodes: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.Episode{}, nil
	}
	return (*results)[0].Result, nil
}

// GraphCounts summarizes the size of the stored graph.
type GraphCounts struct {
	Episodes int `json:"episodes"`
	Segments int `json:"segments"`
}

// QueryGraphCounts counts episodes and segments.
func (c *Client) QueryGraphCounts(ctx context.Context) (GraphCounts, error) {
	sql := `RETURN {
		episodes: count(SELECT VALUE id FROM episode),
		segments: count(SELECT VALUE id FROM segment)
	}`

	results, err := surrealdb.Query[GraphCounts](ctx, c.db, sql, nil)
	if err != nil {
		return GraphCounts{}, fmt.Errorf("graph counts: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return GraphCounts{}, nil
	}
	return (*results)[0].Result, nil
}

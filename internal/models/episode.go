package models

// Episode is a podcast episode node.
type Episode struct {
	EpisodeNumber int     `json:"episode_number"`
	Title         string  `json:"title"`
	URL           *string `json:"url,omitempty"`
	Community     *int    `json:"community,omitempty"`
}

// EpisodeMetadata is the display data attached to an episode in the context.
type EpisodeMetadata struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// MetadataMap maps episode numbers to their metadata.
type MetadataMap map[int]EpisodeMetadata

// SimilarEpisode is a neighbour reached over a SIMILAR_TO edge.
type SimilarEpisode struct {
	EpisodeNumber int     `json:"episode_number"`
	Title         string  `json:"title"`
	Score         float64 `json:"score"`
}

// Package models defines the podcast graph records shared across packages.
package models

// Source records which retrieval pass produced a segment.
type Source string

const (
	SourceKeyword     Source = "keyword"
	SourceGraph       Source = "graph"
	SourceEmbedding   Source = "embedding"
	SourcePlaceholder Source = "placeholder"
)

// PlaceholderText is returned as the only segment when retrieval finds nothing.
const PlaceholderText = "No relevant information found in the database."

// SegmentKey is the identity of a transcript segment.
type SegmentKey struct {
	EpisodeNumber int `json:"episode_number"`
	ChunkIndex    int `json:"chunk_index"`
}

// Segment is a transcript chunk of an episode, as returned by retrieval.
// Similarity is only set by the embedding pass and is valid for one query.
type Segment struct {
	EpisodeNumber int      `json:"episode_number"`
	ChunkIndex    int      `json:"chunk_index"`
	Text          string   `json:"text"`
	Similarity    *float64 `json:"similarity,omitempty"`
	Source        Source   `json:"source,omitempty"`
	Fallback      bool     `json:"fallback,omitempty"`
}

// Key returns the segment's composite identity.
func (s Segment) Key() SegmentKey {
	return SegmentKey{EpisodeNumber: s.EpisodeNumber, ChunkIndex: s.ChunkIndex}
}

// Scored reports whether a similarity score is attached.
func (s Segment) Scored() bool {
	return s.Similarity != nil
}

// Placeholder returns the "nothing found" segment.
func Placeholder() Segment {
	return Segment{
		EpisodeNumber: 0,
		ChunkIndex:    0,
		Text:          PlaceholderText,
		Source:        SourcePlaceholder,
		Fallback:      true,
	}
}

// SegmentEmbedding is a raw row from the embedding scan. Embedding is left
// undecoded so malformed vectors can be skipped instead of failing the scan.
type SegmentEmbedding struct {
	EpisodeNumber int    `json:"episode_number"`
	ChunkIndex    int    `json:"chunk_index"`
	Text          string `json:"text"`
	Embedding     any    `json:"embedding"`
}

// ChatTurn is one prior user/assistant exchange.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

package models

// NodeKind distinguishes nodes returned by neighbourhood expansion.
type NodeKind string

const (
	NodeEpisode NodeKind = "episode"
	NodeSegment NodeKind = "segment"
)

// GraphNode is a node reached by expanding around an episode. Only segment
// nodes carry text.
type GraphNode struct {
	Kind          NodeKind `json:"kind"`
	EpisodeNumber int      `json:"episode_number"`
	ChunkIndex    *int     `json:"chunk_index,omitempty"`
	Text          *string  `json:"text,omitempty"`
	Title         *string  `json:"title,omitempty"`
}

// Segment converts the node into a segment. ok is false for nodes without text.
func (n GraphNode) Segment() (seg Segment, ok bool) {
	if n.Text == nil || *n.Text == "" {
		return Segment{}, false
	}
	chunk := 0
	if n.ChunkIndex != nil {
		chunk = *n.ChunkIndex
	}
	return Segment{
		EpisodeNumber: n.EpisodeNumber,
		ChunkIndex:    chunk,
		Text:          *n.Text,
		Source:        SourceGraph,
	}, true
}

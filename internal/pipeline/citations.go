package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raphaelgruber/podcastrag/internal/models"
)

// Citation is an episode referenced by an answer.
type Citation struct {
	EpisodeNumber int    `json:"episode_number"`
	Title         string `json:"title"`
	URL           string `json:"url,omitempty"`
}

// Citations lists the episodes in metadata, ascending by episode number.
func Citations(metadata models.MetadataMap) []Citation {
	out := make([]Citation, 0, len(metadata))
	for ep, m := range metadata {
		out = append(out, Citation{EpisodeNumber: ep, Title: m.Title, URL: m.URL})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpisodeNumber < out[j].EpisodeNumber })
	return out
}

// FormatReferences renders a localized references section, or "" when there
// is nothing to cite.
func FormatReferences(lang Language, citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}
	p := phrasesFor(lang)

	var b strings.Builder
	fmt.Fprintf(&b, "%s:", p.references)
	for _, c := range citations {
		if c.URL != "" {
			fmt.Fprintf(&b, "\n- [%s](%s)", c.Title, c.URL)
		} else {
			fmt.Fprintf(&b, "\n- [%s] (%s)", c.Title, p.noURL)
		}
	}
	return b.String()
}

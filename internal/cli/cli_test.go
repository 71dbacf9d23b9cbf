package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConversation struct {
	sent   []string
	resets int
}

func (f *fakeConversation) send(_ context.Context, message string) (*pipeline.Response, error) {
	f.sent = append(f.sent, message)
	return &pipeline.Response{Response: "answer: " + message, Stage: pipeline.StageDone}, nil
}

func (f *fakeConversation) reset() error {
	f.resets++
	return nil
}

func (f *fakeConversation) close() error { return nil }

func TestChatLoop(t *testing.T) {
	conv := &fakeConversation{}
	var out bytes.Buffer
	in := strings.NewReader("what is fake news\n\n/reset\n  who spreads it  \n/quit\nnever sent\n")

	err := chatLoop(context.Background(), conv, in, newPrinter(&out))
	require.NoError(t, err)

	assert.Equal(t, []string{"what is fake news", "who spreads it"}, conv.sent)
	assert.Equal(t, 1, conv.resets)
	assert.Contains(t, out.String(), "answer: who spreads it")
	assert.Contains(t, out.String(), "Conversation cleared.")
}

func TestChatLoopEOF(t *testing.T) {
	conv := &fakeConversation{}
	var out bytes.Buffer

	err := chatLoop(context.Background(), conv, strings.NewReader("one question only"), newPrinter(&out))
	require.NoError(t, err)
	assert.Equal(t, []string{"one question only"}, conv.sent)
}

func TestPrintAnswer(t *testing.T) {
	tests := []struct {
		name     string
		resp     pipeline.Response
		segments bool
		want     []string
		notWant  []string
	}{
		{
			name: "answer with segments",
			resp: pipeline.Response{
				Response: "People share what confirms their beliefs.",
				Segments: []models.Segment{{EpisodeNumber: 12, ChunkIndex: 3, Text: "bias text", Source: models.SourceKeyword}},
			},
			segments: true,
			want:     []string{"People share", "Segments (1):", "Episode 12, segment 3 [keyword]", "  bias text"},
		},
		{
			name:    "segments hidden by default",
			resp:    pipeline.Response{Response: "ok", Segments: []models.Segment{{EpisodeNumber: 1}}},
			want:    []string{"ok"},
			notWant: []string{"Segments"},
		},
		{
			name: "clarification",
			resp: pipeline.Response{Response: "Could you please clarify your question?", Clarification: true},
			want: []string{"clarify"},
		},
		{
			name:    "error shows apology only",
			resp:    pipeline.Response{Response: "Sorry, something went wrong", Error: "llm down"},
			want:    []string{"Sorry"},
			notWant: []string{"llm down"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printAnswer(newPrinter(&out), &tt.resp, tt.segments)
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out.String(), w)
			}
		})
	}
}

func TestLocalConversationHistory(t *testing.T) {
	conv := &localConversation{max: 2}

	conv.remember("a", pipeline.Response{Response: "1"})
	conv.remember("b", pipeline.Response{Response: "2", Clarification: true})
	conv.remember("e", pipeline.Response{Response: "sorry", Error: "boom"})
	conv.remember("c", pipeline.Response{Response: "3"})
	conv.remember("d", pipeline.Response{Response: "4"})

	assert.Equal(t, []models.ChatTurn{{User: "c", Assistant: "3"}, {User: "d", Assistant: "4"}}, conv.history)
	require.NoError(t, conv.reset())
	assert.Empty(t, conv.history)
}

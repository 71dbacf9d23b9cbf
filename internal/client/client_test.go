package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raphaelgruber/podcastrag/internal/httpapi"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoAsker struct{}

func (echoAsker) Run(_ context.Context, req pipeline.Request) pipeline.Response {
	resp := pipeline.Response{Response: "echo: " + req.Message, Language: pipeline.English}
	if len(req.History) > 0 {
		resp.Error = "history"
	}
	return resp
}

func newServer(t *testing.T) *Client {
	t.Helper()
	api := httpapi.New(httpapi.Options{Pipeline: echoAsker{}, Metrics: metrics.NewCollector()})
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("PODCASTRAG_SERVER_URL", "")
	t.Setenv("PODCASTRAG_CLIENT_TIMEOUT", "5s")

	c := New("")
	assert.Equal(t, "http://localhost:8484", c.baseURL)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestAsk(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	resp, err := c.Ask(ctx, pipeline.Request{Message: "what is memory"})
	require.NoError(t, err)
	assert.Equal(t, "echo: what is memory", resp.Response)
	assert.Equal(t, pipeline.English, resp.Language)

	_, err = c.Ask(ctx, pipeline.Request{Message: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message is required")
}

func TestHealthAndStats(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	_, err = c.Ask(ctx, pipeline.Request{Message: "anything at all"})
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Metrics.UptimeSeconds, 0.0)
}

func TestChat(t *testing.T) {
	c := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chat, err := c.Chat(ctx)
	require.NoError(t, err)
	defer chat.Close()

	resp, err := chat.Send(ctx, "first question here", "en")
	require.NoError(t, err)
	assert.Equal(t, "echo: first question here", resp.Response)
	assert.Empty(t, resp.Error)

	// The echo asker reports an error once history is present, so the second
	// turn is not remembered either.
	resp, err = chat.Send(ctx, "second question here", "en")
	require.NoError(t, err)
	assert.Equal(t, "history", resp.Error)

	require.NoError(t, chat.Reset())
	resp, err = chat.Send(ctx, "third question here", "en")
	require.NoError(t, err)
	assert.Empty(t, resp.Error, "reset cleared the history")
}

func TestChatContextCancel(t *testing.T) {
	c := newServer(t)

	chat, err := c.Chat(context.Background())
	require.NoError(t, err)
	defer chat.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = chat.Send(ctx, "never answered in time", "")
	require.Error(t, err)
}

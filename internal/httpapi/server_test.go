package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	mu        sync.Mutex
	reqs      []pipeline.Request
	deadlines []time.Time
	// delay simulates a slow language model; it ends early when ctx does.
	delay time.Duration
}

func (f *fakeAsker) Run(ctx context.Context, req pipeline.Request) pipeline.Response {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return pipeline.Response{Response: "Sorry, something went wrong", Error: ctx.Err().Error()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	deadline, _ := ctx.Deadline()
	f.deadlines = append(f.deadlines, deadline)

	if len(strings.Fields(req.Message)) < 3 {
		return pipeline.Response{Response: "Could you please clarify your question?", Clarification: true}
	}
	return pipeline.Response{Response: "answer to " + req.Message, Stage: pipeline.StageDone}
}

func (f *fakeAsker) last() pipeline.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

type fakeStatus struct{ connected bool }

func (f fakeStatus) Connected() bool { return f.connected }
func (f fakeStatus) Failures() int64 { return 3 }

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *fakeAsker) {
	t.Helper()
	return newTestServerWith(t, opts, &fakeAsker{})
}

func newTestServerWith(t *testing.T, opts Options, asker *fakeAsker) (*httptest.Server, *fakeAsker) {
	t.Helper()
	opts.Pipeline = asker
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts, asker
}

func TestAsk(t *testing.T) {
	ts, asker := newTestServer(t, Options{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantText   string
	}{
		{"answers", `{"message":"why do people share fake news","language":"en","chat_history":[{"user":"hi","assistant":"hello"}]}`, http.StatusOK, "answer to why do people share fake news"},
		{"empty message", `{"message":"  "}`, http.StatusBadRequest, "message is required"},
		{"malformed json", `{"message":`, http.StatusBadRequest, "invalid request body"},
		{"unknown field", `{"msg":"x"}`, http.StatusBadRequest, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var raw map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantText, raw["response"])
			} else {
				assert.Contains(t, raw["error"], tt.wantText)
			}
		})
	}

	assert.Equal(t, []models.ChatTurn{{User: "hi", Assistant: "hello"}}, asker.last().History)
}

func TestAskRunsUnderTimeout(t *testing.T) {
	ts, asker := newTestServer(t, Options{AskTimeout: 3 * time.Minute})

	start := time.Now()
	resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(`{"message":"why do people share fake news"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	asker.mu.Lock()
	defer asker.mu.Unlock()
	require.Len(t, asker.deadlines, 1)
	assert.WithinDuration(t, start.Add(3*time.Minute), asker.deadlines[0], 5*time.Second)
}

func TestAskTimeoutEndsSlowRun(t *testing.T) {
	ts, _ := newTestServerWith(t, Options{AskTimeout: 50 * time.Millisecond}, &fakeAsker{delay: time.Minute})

	start := time.Now()
	resp, err := http.Post(ts.URL+"/ask", "application/json", strings.NewReader(`{"message":"why do people share fake news"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body pipeline.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, context.DeadlineExceeded.Error(), body.Error)
}

func TestWriteTimeoutCoversAskTimeout(t *testing.T) {
	tests := []struct {
		name string
		ask  time.Duration
	}{
		{"default", 0},
		{"five minutes", 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{Pipeline: &fakeAsker{}, AskTimeout: tt.ask})
			hs := s.httpServer(":0")
			assert.Greater(t, hs.WriteTimeout, s.opts.AskTimeout)
			assert.GreaterOrEqual(t, s.opts.AskTimeout, tt.ask)
		})
	}
}

func TestAskMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/ask")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHealthAndStats(t *testing.T) {
	m := metrics.NewCollector()
	m.RecordTiming(metrics.OpRetrieval, 5*time.Millisecond)
	ts, _ := newTestServer(t, Options{Store: fakeStatus{connected: false}, Metrics: m})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	var health HealthBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, HealthBody{Status: "degraded", StoreConnected: false}, health)

	resp, err = http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	var stats StatsBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, int64(3), stats.StoreFailures)
	require.NotNil(t, stats.Metrics.Op(metrics.OpRetrieval))
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg ChatMessage) ChatMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	var reply ChatMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestChatKeepsHistory(t *testing.T) {
	ts, asker := newTestServer(t, Options{MaxHistory: 2})
	conn := dial(t, ts)

	reply := roundTrip(t, conn, ChatMessage{ID: "1", Type: MsgAsk, Message: "what is fake news"})
	assert.Equal(t, MsgAnswer, reply.Type)
	assert.Equal(t, "1", reply.ID)
	require.NotNil(t, reply.Response)
	assert.Equal(t, "answer to what is fake news", reply.Response.Response)
	assert.Empty(t, asker.last().History)

	// Clarifications are not remembered.
	roundTrip(t, conn, ChatMessage{ID: "2", Type: MsgAsk, Message: "and?"})
	roundTrip(t, conn, ChatMessage{ID: "3", Type: MsgAsk, Message: "who spreads it most"})
	assert.Equal(t, []models.ChatTurn{{User: "what is fake news", Assistant: "answer to what is fake news"}}, asker.last().History)

	roundTrip(t, conn, ChatMessage{ID: "4", Type: MsgAsk, Message: "how to stop it"})
	assert.Len(t, asker.last().History, 2)
	assert.Equal(t, "who spreads it most", asker.last().History[1].User)

	roundTrip(t, conn, ChatMessage{ID: "5", Type: MsgAsk, Message: "one more question"})
	assert.Len(t, asker.last().History, 2, "history is capped")
	assert.Equal(t, "who spreads it most", asker.last().History[0].User)

	require.NoError(t, conn.WriteJSON(ChatMessage{Type: MsgReset}))
	roundTrip(t, conn, ChatMessage{ID: "6", Type: MsgAsk, Message: "start over please"})
	assert.Empty(t, asker.last().History)
}

func TestChatSurvivesRunLongerThanPongWait(t *testing.T) {
	asker := &fakeAsker{delay: 300 * time.Millisecond}
	ts, _ := newTestServerWith(t, Options{PongWait: 100 * time.Millisecond}, asker)
	conn := dial(t, ts)

	reply := roundTrip(t, conn, ChatMessage{ID: "1", Type: MsgAsk, Message: "what is fake news"})
	require.Equal(t, MsgAnswer, reply.Type)

	reply = roundTrip(t, conn, ChatMessage{ID: "2", Type: MsgAsk, Message: "who spreads it most"})
	require.Equal(t, MsgAnswer, reply.Type)
	assert.Equal(t, "2", reply.ID)
	assert.Len(t, asker.last().History, 1)
}

func TestChatErrors(t *testing.T) {
	ts, _ := newTestServer(t, Options{})
	conn := dial(t, ts)

	reply := roundTrip(t, conn, ChatMessage{ID: "a", Type: MsgAsk})
	assert.Equal(t, MsgError, reply.Type)
	assert.Equal(t, "message is required", reply.Error)

	reply = roundTrip(t, conn, ChatMessage{ID: "b", Type: "subscribe"})
	assert.Equal(t, MsgError, reply.Type)
	assert.Contains(t, reply.Error, `"subscribe"`)
}

func TestChatRejectsOrigin(t *testing.T) {
	ts, _ := newTestServer(t, Options{AllowedOrigins: []string{"http://chat.example"}})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://chat.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

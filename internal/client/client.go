// Package client talks to a running podcastrag HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/podcastrag/internal/httpapi"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
)

// Client is an HTTP client for the podcastrag server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
// If baseURL is empty, uses PODCASTRAG_SERVER_URL env var or defaults to localhost:8484.
// Timeout can be configured via PODCASTRAG_CLIENT_TIMEOUT env var (default 2m).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("PODCASTRAG_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8484"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("PODCASTRAG_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do sends a request and decodes a JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e httpapi.ErrorBody
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("server error: %s - %s", resp.Status, e.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Ask sends one question.
func (c *Client) Ask(ctx context.Context, req pipeline.Request) (*pipeline.Response, error) {
	var resp pipeline.Response
	if err := c.do(ctx, http.MethodPost, "/ask", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports server health.
func (c *Client) Health(ctx context.Context) (*httpapi.HealthBody, error) {
	var body httpapi.HealthBody
	if err := c.do(ctx, http.MethodGet, "/health", nil, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Stats returns runtime statistics.
func (c *Client) Stats(ctx context.Context) (*httpapi.StatsBody, error) {
	var body httpapi.StatsBody
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// =============================================================================
// CHAT SOCKET
// =============================================================================

// Chat is a conversation over the chat socket. The server keeps the history
// for the lifetime of the connection. Not safe for concurrent use.
type Chat struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Chat opens a chat socket.
func (c *Client) Chat(ctx context.Context) (*Chat, error) {
	wsEndpoint := c.baseURL
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/ws")
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return &Chat{conn: conn}, nil
}

// Send asks a question in the conversation and waits for the answer.
func (ch *Chat) Send(ctx context.Context, message, language string) (*pipeline.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	if err := ch.conn.WriteJSON(httpapi.ChatMessage{ID: id, Type: httpapi.MsgAsk, Message: message, Language: language}); err != nil {
		return nil, fmt.Errorf("send ask: %w", err)
	}

	// Unblock the read when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ch.Close()
		case <-done:
		}
	}()

	for {
		var msg httpapi.ChatMessage
		if err := ch.conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read message: %w", err)
		}
		if msg.ID != id {
			continue
		}

		switch msg.Type {
		case httpapi.MsgAnswer:
			if msg.Response == nil {
				return nil, fmt.Errorf("answer without response")
			}
			return msg.Response, nil
		case httpapi.MsgError:
			return nil, fmt.Errorf("chat error: %s", msg.Error)
		}
	}
}

// Reset clears the conversation history on the server.
func (ch *Chat) Reset() error {
	if err := ch.conn.WriteJSON(httpapi.ChatMessage{Type: httpapi.MsgReset}); err != nil {
		return fmt.Errorf("send reset: %w", err)
	}
	return nil
}

// Close closes the socket.
func (ch *Chat) Close() error {
	var err error
	ch.closeOnce.Do(func() {
		_ = ch.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = ch.conn.Close()
	})
	return err
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
)

// Chat socket message types.
const (
	MsgAsk    = "ask"
	MsgReset  = "reset"
	MsgAnswer = "answer"
	MsgError  = "error"
)

const writeWait = 10 * time.Second

// ChatMessage is a frame on the chat socket. Clients send ask and reset;
// the server replies with answer or error carrying the same ID.
type ChatMessage struct {
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type"`
	Message  string             `json:"message,omitempty"`
	Language string             `json:"language,omitempty"`
	Response *pipeline.Response `json:"response,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// chatSession is the state of one socket. History lives only as long as the
// connection.
type chatSession struct {
	conn    *websocket.Conn
	history []models.ChatTurn
	max     int
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	pongWait := s.opts.PongWait
	sess := &chatSession{conn: conn, max: s.opts.MaxHistory}
	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go sess.keepAlive(done, pongWait*9/10)

	s.logger.Debug("chat socket opened", "remote", r.RemoteAddr)
	for {
		var msg ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				s.logger.Debug("chat socket read failed", "error", err)
			}
			return
		}

		switch msg.Type {
		case MsgAsk:
			if strings.TrimSpace(msg.Message) == "" {
				sess.write(ChatMessage{ID: msg.ID, Type: MsgError, Error: "message is required"})
				continue
			}
			resp := s.ask(r.Context(), pipeline.Request{
				Message:  msg.Message,
				Language: msg.Language,
				History:  sess.history,
			})
			sess.remember(msg.Message, resp)
			sess.write(ChatMessage{ID: msg.ID, Type: MsgAnswer, Response: &resp})
		case MsgReset:
			sess.history = nil
		default:
			sess.write(ChatMessage{ID: msg.ID, Type: MsgError, Error: "unknown message type " + jsonQuote(msg.Type)})
		}

		// Pongs are only handled while reading, so a long run must not count
		// against the client.
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}


// remember appends a completed exchange. Clarifications and failures are not
// part of the conversation.
func (c *chatSession) remember(question string, resp pipeline.Response) {
	if resp.Clarification || resp.Error != "" {
		return
	}
	c.history = append(c.history, models.ChatTurn{User: question, Assistant: resp.Response})
	if len(c.history) > c.max {
		c.history = append([]models.ChatTurn(nil), c.history[len(c.history)-c.max:]...)
	}
}

// write sends one frame. Only the read loop writes data frames.
func (c *chatSession) write(msg ChatMessage) {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteJSON(msg)
}

func (c *chatSession) keepAlive(done <-chan struct{}, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

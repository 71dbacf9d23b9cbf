package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raphaelgruber/podcastrag/internal/client"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/raphaelgruber/podcastrag/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	chatLanguage   string
	chatMaxHistory int
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Ask questions one after another. Earlier answered questions are passed
to the language model as chat history.

Type /reset to forget the conversation and /quit (or Ctrl-D) to leave.

Examples:
  podcastrag chat
  podcastrag chat --language English
  podcastrag chat --server http://localhost:8484`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatLanguage, "language", "l", "", "answer language: Portuguese or English (default: detect)")
	chatCmd.Flags().IntVar(&chatMaxHistory, "history", 10, "max remembered exchanges")
}

// conversation is one way of answering chat turns.
type conversation interface {
	send(ctx context.Context, message string) (*pipeline.Response, error)
	reset() error
	close() error
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var conv conversation
	if c := remote(); c != nil {
		chat, err := c.Chat(ctx)
		if err != nil {
			return fmt.Errorf("open chat: %w", err)
		}
		conv = &remoteConversation{chat: chat, language: chatLanguage}
	} else {
		a, err := getApp(ctx, true)
		if err != nil {
			return err
		}
		conv = &localConversation{pipe: a.Pipeline, language: chatLanguage, max: chatMaxHistory}
	}
	defer conv.close()

	return chatLoop(ctx, conv, os.Stdin, newPrinter(os.Stdout))
}

func chatLoop(ctx context.Context, conv conversation, in io.Reader, p *printer) error {
	p.hint("Ask about the podcast. /reset forgets the conversation, /quit leaves.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(p.w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(p.w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := conv.reset(); err != nil {
				return err
			}
			p.hint("Conversation cleared.")
			continue
		}

		resp, err := conv.send(ctx, line)
		if err != nil {
			return err
		}
		if jsonOutput {
			if err := p.json(resp); err != nil {
				return err
			}
			continue
		}
		printAnswer(p, resp, false)
		p.line("")
	}
}

// localConversation keeps the history in memory, like the server does per socket.
type localConversation struct {
	pipe     *pipeline.Pipeline
	language string
	max      int
	history  []models.ChatTurn
}

func (c *localConversation) send(ctx context.Context, message string) (*pipeline.Response, error) {
	resp := c.pipe.Run(ctx, pipeline.Request{Message: message, Language: c.language, History: c.history})
	c.remember(message, resp)
	return &resp, nil
}

// remember keeps answered exchanges only.
func (c *localConversation) remember(message string, resp pipeline.Response) {
	if resp.Clarification || resp.Error != "" {
		return
	}
	c.history = append(c.history, models.ChatTurn{User: message, Assistant: resp.Response})
	if c.max > 0 && len(c.history) > c.max {
		c.history = c.history[len(c.history)-c.max:]
	}
}

func (c *localConversation) reset() error {
	c.history = nil
	return nil
}

func (c *localConversation) close() error { return nil }

type remoteConversation struct {
	chat     *client.Chat
	language string
}

func (c *remoteConversation) send(ctx context.Context, message string) (*pipeline.Response, error) {
	return c.chat.Send(ctx, message, c.language)
}

func (c *remoteConversation) reset() error { return c.chat.Reset() }
func (c *remoteConversation) close() error { return c.chat.Close() }

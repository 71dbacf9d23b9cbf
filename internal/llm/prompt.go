package llm

import (
	"fmt"

	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/tmc/langchaingo/llms"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

const systemPrompt = `You are a helpful podcast assistant. Use the provided context, made of episode transcript segments, to answer the user's question.
If the context does not contain the answer, say so instead of guessing.
Answer in %s.`

// BuildMessages lays out the system prompt, prior turns and the current
// question with its context.
func BuildMessages(language, contextText string, history []models.ChatTurn, question string) []Message {
	msgs := make([]Message, 0, 2+2*len(history))
	msgs = append(msgs, Message{Role: RoleSystem, Content: fmt.Sprintf(systemPrompt, language)})

	for _, turn := range history {
		msgs = append(msgs,
			Message{Role: RoleUser, Content: turn.User},
			Message{Role: RoleAssistant, Content: turn.Assistant},
		)
	}

	msgs = append(msgs, Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nUser question: %s\nAnswer:", contextText, question),
	})
	return msgs
}

func toLangchain(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		var t llms.ChatMessageType
		switch m.Role {
		case RoleSystem:
			t = llms.ChatMessageTypeSystem
		case RoleAssistant:
			t = llms.ChatMessageTypeAI
		default:
			t = llms.ChatMessageTypeHuman
		}
		out = append(out, llms.TextParts(t, m.Content))
	}
	return out
}

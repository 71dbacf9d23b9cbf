package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/raphaelgruber/podcastrag/internal/config"
	"github.com/raphaelgruber/podcastrag/internal/metrics"
	"github.com/raphaelgruber/podcastrag/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestIsFatalAPIError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("connection reset"), false},
		{"credit balance", errors.New("insufficient credit balance"), true},
		{"rate limit", errors.New("rate limit exceeded"), true},
		{"quota exceeded", errors.New("quota exceeded for model"), true},
		{"billing issue", errors.New("billing account inactive"), true},
		{"invalid api key", errors.New("invalid api key"), true},
		{"authentication failed", errors.New("authentication failed"), true},
		{"unauthorized", errors.New("unauthorized request"), true},
		{"401 status", errors.New("HTTP 401: not allowed"), true},
		{"403 status", errors.New("HTTP 403: forbidden"), true},
		{"wrapped error", fmt.Errorf("embed: %w", errors.New("credit balance too low")), true},
		{"404 not fatal", errors.New("HTTP 404: not found"), false},
		{"timeout not fatal", errors.New("context deadline exceeded"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isFatalAPIError(tt.err)
			if got != tt.fatal {
				t.Errorf("isFatalAPIError(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestWrapFatalError(t *testing.T) {
	t.Run("wraps fatal error", func(t *testing.T) {
		err := errors.New("invalid api key provided")
		wrapped := wrapFatalError(err)
		if !errors.Is(wrapped, ErrFatalAPI) {
			t.Errorf("expected wrapped error to match ErrFatalAPI")
		}
	})

	t.Run("passes through non-fatal error", func(t *testing.T) {
		err := errors.New("network timeout")
		result := wrapFatalError(err)
		if errors.Is(result, ErrFatalAPI) {
			t.Errorf("non-fatal error should not be wrapped with ErrFatalAPI")
		}
		if result != err {
			t.Errorf("expected original error returned, got %v", result)
		}
	})

	t.Run("nil error", func(t *testing.T) {
		result := wrapFatalError(nil)
		if result != nil {
			t.Errorf("expected nil, got %v", result)
		}
	})
}

type fakeLLM struct {
	got      []llms.MessageContent
	opts     llms.CallOptions
	response *llms.ContentResponse
	err      error
}

func (f *fakeLLM) GenerateContent(_ context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.got = msgs
	for _, o := range options {
		o(&f.opts)
	}
	return f.response, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestComplete(t *testing.T) {
	fake := &fakeLLM{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:        "Porque confirmam crenças.",
		GenerationInfo: map[string]any{"PromptTokens": 900, "CompletionTokens": 40},
	}}}}
	collector := metrics.NewCollector()
	m := newModel(fake, "gpt-4o-mini-2024-07-18", 0, collector)

	msgs := BuildMessages("Portuguese", "Episode 280: X\nSegment 1: y\n", nil, "Por que as pessoas compartilham fake news?")
	out, err := m.Complete(context.Background(), msgs, CompleteOptions{MaxTokens: 512, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "Porque confirmam crenças.", out)

	require.Len(t, fake.got, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.got[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.got[1].Role)
	assert.Equal(t, 512, fake.opts.MaxTokens)
	assert.InDelta(t, 0.2, fake.opts.Temperature, 1e-9)

	op := collector.Snapshot().Op(metrics.OpLLMGenerate)
	require.NotNil(t, op)
	require.NotNil(t, op.InputTokens)
	assert.Equal(t, int64(900), *op.InputTokens)
}

func TestCompleteErrors(t *testing.T) {
	t.Run("provider failure is classified", func(t *testing.T) {
		m := newModel(&fakeLLM{err: errors.New("HTTP 401: invalid api key")}, "m", 0, nil)
		_, err := m.Complete(context.Background(), nil, CompleteOptions{})
		require.Error(t, err)
		assert.True(t, IsFatal(err))
	})

	t.Run("no choices", func(t *testing.T) {
		m := newModel(&fakeLLM{response: &llms.ContentResponse{}}, "m", 0, nil)
		_, err := m.Complete(context.Background(), nil, CompleteOptions{})
		require.Error(t, err)
		assert.False(t, IsFatal(err))
	})

	t.Run("rate limiter honours cancellation", func(t *testing.T) {
		fake := &fakeLLM{response: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}}
		m := newModel(fake, "m", 0.001, nil)

		_, err := m.Complete(context.Background(), nil, CompleteOptions{})
		require.NoError(t, err, "first call uses the burst token")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = m.Complete(ctx, nil, CompleteOptions{})
		require.Error(t, err)
	})
}

func TestBuildMessagesWithHistory(t *testing.T) {
	history := []models.ChatTurn{{User: "Oi", Assistant: "Olá!"}}
	msgs := BuildMessages("English", "ctx", history, "What is episode 280 about?")

	require.Len(t, msgs, 4)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Answer in English.")
	assert.Equal(t, Message{Role: RoleUser, Content: "Oi"}, msgs[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "Olá!"}, msgs[2])
	assert.Contains(t, msgs[3].Content, "Context:\nctx")
	assert.Contains(t, msgs[3].Content, "User question: What is episode 280 about?")

	lc := toLangchain(msgs)
	assert.Equal(t, llms.ChatMessageTypeAI, lc[2].Role)
}

func TestUnsupportedProvider(t *testing.T) {
	_, err := NewModel(context.Background(), config.Config{LLMProvider: "gpt-j"}, nil)
	require.Error(t, err)

	_, err = NewModel(context.Background(), config.Config{LLMProvider: config.ProviderAnthropic}, nil)
	require.Error(t, err)
}

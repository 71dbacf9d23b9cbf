package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterFunc(t *testing.T) {
	words := CounterFunc(func(s string) int { return len(strings.Fields(s)) })
	assert.Equal(t, 3, words.Count("por que as"))
	assert.Equal(t, 0, words.Count(""))
}

func TestTiktoken(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping: loading BPE ranks needs network access")
	}

	tk, err := NewTiktoken("gpt-4o-mini-2024-07-18")
	require.NoError(t, err)

	assert.Equal(t, 0, tk.Count(""))
	short := tk.Count("Episode 280")
	long := tk.Count("Episode 280: Por Que As Pessoas Compartilham Fake News")
	assert.Positive(t, short)
	assert.Greater(t, long, short)
	assert.NotEmpty(t, tk.Encoding())
}

func TestApproximate(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Approximate.Count(tt.text), tt.text)
	}
}

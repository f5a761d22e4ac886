package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))

	short := CountTokens("hello")
	long := CountTokens("hello world, this is a considerably longer sentence about reports")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestTruncateToTokens(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50)

	assert.Equal(t, "", TruncateToTokens(text, 0))
	assert.Equal(t, "", TruncateToTokens(text, -1))
	assert.Equal(t, text, TruncateToTokens(text, CountTokens(text)))

	budget := 20
	trimmed := TruncateToTokens(text, budget)
	require.NotEmpty(t, trimmed)
	assert.Less(t, len(trimmed), len(text))
	assert.LessOrEqual(t, CountTokens(trimmed), budget)
	assert.True(t, strings.HasPrefix(text, trimmed))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Request{
		Subject:      "Q2 incident review",
		Instructions: "Keep it under two pages.",
		Source:       "incident log line",
	})
	assert.Contains(t, p, "Subject: Q2 incident review")
	assert.Contains(t, p, "Instructions:\nKeep it under two pages.")
	assert.Contains(t, p, "Source material:\nincident log line")
}

func TestBuildPromptTruncatesSourceToBudget(t *testing.T) {
	source := strings.Repeat("metric sample 12345. ", 500)
	budget := 60

	p := BuildPrompt(Request{Subject: "metrics", Source: source, Budget: budget})
	// Token counts are not perfectly additive across concatenation; allow a
	// small boundary slop.
	assert.LessOrEqual(t, CountTokens(p), budget+4)
	assert.Contains(t, p, "Source material:")
	assert.Less(t, len(p), len(source))
}

func TestBuildPromptDropsSourceWhenBudgetExhausted(t *testing.T) {
	longSubject := strings.Repeat("very detailed subject ", 30)
	p := BuildPrompt(Request{Subject: longSubject, Source: "data", Budget: 10})
	assert.NotContains(t, p, "Source material:")
}

func TestNewClientResolvesKeyFromEnv(t *testing.T) {
	t.Setenv("REPORTGEN_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClient(Config{})
	require.ErrorIs(t, err, ErrNoAPIKey)

	t.Setenv("REPORTGEN_API_KEY", "sk-test")
	c, err := NewClient(Config{})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestNewClientEnvIndirection(t *testing.T) {
	t.Setenv("MY_KEY_VAR", "sk-indirect")
	c, err := NewClient(Config{APIKey: "$MY_KEY_VAR"})
	require.NoError(t, err)
	require.NotNil(t, c)

	t.Setenv("MY_KEY_VAR", "")
	t.Setenv("REPORTGEN_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	_, err = NewClient(Config{APIKey: "$MY_KEY_VAR"})
	require.ErrorIs(t, err, ErrNoAPIKey)
}

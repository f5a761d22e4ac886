// Package generator produces the original report document: prompt assembly,
// token budgeting, and the chat-completion call. The editing surface treats
// it as the external producer of original content; it never touches edited
// state.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/ryo8073/report-gen-sub006/internal/simplelogger"
)

// ErrNoAPIKey is returned by NewClient when no API key could be resolved.
var ErrNoAPIKey = errors.New("generator: no API key configured")

// ErrEmptyCompletion is returned when the model responds with no usable
// content.
var ErrEmptyCompletion = errors.New("generator: empty completion")

// DefaultModel is used when Request leaves Model empty.
const DefaultModel = "gpt-5"

// DefaultPromptBudget caps prompt tokens when Request leaves Budget zero.
// Source material beyond the budget is truncated from the end.
const DefaultPromptBudget = 100_000

const systemPrompt = `You are a report writer. Produce a clear, well-structured
report in GitHub-flavored markdown based on the provided source material.
Use headings, lists, and tables where they aid the reader. Output only the
report; no preamble.`

// Request describes one generation cycle.
type Request struct {
	// Subject is the report's topic, required.
	Subject string

	// Source is supporting material folded into the prompt. It is truncated
	// to fit the token budget.
	Source string

	// Instructions are optional extra directions appended to the prompt.
	Instructions string

	Model  string
	Budget int // prompt token budget; 0 means DefaultPromptBudget
}

// Report is the outcome of a generation cycle.
type Report struct {
	Content      string
	Model        string
	PromptTokens int // local estimate of the prompt sent
	Duration     time.Duration
	Metadata     map[string]any
}

// Config resolves client construction inputs. Zero values fall back to the
// environment: REPORTGEN_API_KEY then OPENAI_API_KEY for the key,
// REPORTGEN_BASE_URL for the endpoint. Either field may hold a $ENV_VAR
// indirection instead of a literal value.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client generates reports through a chat-completion endpoint.
type Client struct {
	api openai.Client
}

// getEnvWithPossibleDollar resolves key as an environment variable name,
// tolerating a leading $.
func getEnvWithPossibleDollar(key string) string {
	if key == "" {
		return ""
	}
	envVar := strings.TrimPrefix(key, "$")
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return v
		}
	}
	return ""
}

// resolveWithIndirection returns v itself unless it is a $ENV_VAR reference,
// in which case the variable's value is returned.
func resolveWithIndirection(v string) string {
	if strings.HasPrefix(v, "$") {
		return getEnvWithPossibleDollar(v)
	}
	return v
}

// NewClient builds a Client from cfg and the environment.
func NewClient(cfg Config) (*Client, error) {
	apiKey := resolveWithIndirection(cfg.APIKey)
	if apiKey == "" {
		apiKey = os.Getenv("REPORTGEN_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := resolveWithIndirection(cfg.BaseURL)
	if baseURL == "" {
		baseURL = os.Getenv("REPORTGEN_BASE_URL")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{api: openai.NewClient(opts...)}, nil
}

// Generate runs one generation cycle: assemble the prompt within the token
// budget, call the model, and return the report with generation metadata.
func (c *Client) Generate(ctx context.Context, req Request) (*Report, error) {
	if strings.TrimSpace(req.Subject) == "" {
		return nil, errors.New("generator: empty subject")
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	prompt := BuildPrompt(req)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(prompt),
	}
	request := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}

	promptTokens := CountTokens(systemPrompt) + CountTokens(prompt)
	simplelogger.Log("generator: requesting report model=%s promptTokens=%d", model, promptTokens)

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("generator: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, ErrEmptyCompletion
	}

	content := resp.Choices[0].Message.Content
	return &Report{
		Content:      content,
		Model:        model,
		PromptTokens: promptTokens,
		Duration:     time.Since(start),
		Metadata: map[string]any{
			"model":        model,
			"promptTokens": promptTokens,
			"generatedAt":  time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// BuildPrompt assembles the user prompt for req, truncating source material
// to the token budget.
func BuildPrompt(req Request) string {
	budget := req.Budget
	if budget <= 0 {
		budget = DefaultPromptBudget
	}

	var b strings.Builder
	b.WriteString("Subject: ")
	b.WriteString(req.Subject)
	b.WriteString("\n")
	if req.Instructions != "" {
		b.WriteString("\nInstructions:\n")
		b.WriteString(req.Instructions)
		b.WriteString("\n")
	}
	if req.Source != "" {
		frame := b.String() + "\nSource material:\n"
		remaining := budget - CountTokens(frame)
		source := TruncateToTokens(req.Source, remaining)
		if source != "" {
			b.WriteString("\nSource material:\n")
			b.WriteString(source)
			b.WriteString("\n")
		}
	}
	return b.String()
}

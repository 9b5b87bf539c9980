// Package llm asks a hosted chat model to answer a question from retrieved
// lecture context in the fixed reply template.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"

	"github.com/bull/video-rag/internal/answer"
)

const (
	DefaultModel       = openai.ChatModelGPT4o
	DefaultTemperature = 0.4
	DefaultTopP        = 0.9
	DefaultMaxTokens   = 1024

	// DefaultMaxContextTokens is the context length before truncation (in tokens).
	DefaultMaxContextTokens = 16000
)

var ErrEmptyReply = errors.New("model returned an empty reply")

// Options tunes the chat completion. Zero values fall back to the defaults.
type Options struct {
	Model            string
	Temperature      *float64 // nil uses DefaultTemperature; 0 is a valid setting
	TopP             float64
	MaxTokens        int
	MaxContextTokens int
}

// Answerer produces template-shaped answers using an OpenAI chat model.
type Answerer struct {
	client *openai.Client
	opts   Options
	logger *slog.Logger
}

// NewAnswerer creates an Answerer with the given OpenAI client.
// If logger is nil, slog.Default() is used.
func NewAnswerer(client *openai.Client, opts Options, logger *slog.Logger) *Answerer {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature == nil {
		t := DefaultTemperature
		opts.Temperature = &t
	}
	if opts.TopP <= 0 {
		opts.TopP = DefaultTopP
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxContextTokens <= 0 {
		opts.MaxContextTokens = DefaultMaxContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{client: client, opts: opts, logger: logger}
}

// BuildPrompt renders the instruction, context and question into one user message.
func BuildPrompt(question, contextText string) string {
	return fmt.Sprintf(`Answer the question using ONLY the context below.
If relevant information comes from multiple chunks of the SAME video, merge the timestamps (start time should be the start of the first chunk and end time should be the end of the last chunk).
Convert the timestamps to minutes and seconds. Check if the answer is in the context and if not, then give the next best answer.

### Context:
%s

### Question:
%s

Return answer as:
%s
`, contextText, question, answer.Template)
}

// Answer asks the model and returns its trimmed raw reply.
func (a *Answerer) Answer(ctx context.Context, question, contextText string) (string, error) {
	prompt := BuildPrompt(question, a.truncateContext(contextText))

	var reply string
	operation := func() error {
		resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Model:       a.opts.Model,
			Temperature: openai.Float(*a.opts.Temperature),
			TopP:        openai.Float(a.opts.TopP),
			MaxTokens:   openai.Int(int64(a.opts.MaxTokens)),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("chat completion failed: %w", err))
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(ErrEmptyReply)
		}
		reply = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// truncateContext truncates context to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (a *Answerer) truncateContext(contextText string) string {
	maxChars := a.opts.MaxContextTokens * 4

	if len(contextText) <= maxChars {
		return contextText
	}

	a.logger.Warn("truncating context",
		"from_chars", len(contextText), "to_chars", maxChars, "max_tokens", a.opts.MaxContextTokens)

	// Drop whole blocks so no context line is cut mid-citation
	cut := strings.LastIndex(contextText[:maxChars], "\n")
	if cut <= 0 {
		// One oversized line: cut at the last rune boundary that fits
		for maxChars > 0 && !utf8.RuneStart(contextText[maxChars]) {
			maxChars--
		}
		return contextText[:maxChars]
	}
	return contextText[:cut]
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	ProviderOpenAI = "openai"

	// OpenAIModel is the default OpenAI text embedding model.
	OpenAIModel = "text-embedding-3-small"

	// OpenAIDimension is the vector dimension for text-embedding-3-small.
	OpenAIDimension = 1536

	// OpenAIVisionModel describes frames so they can be embedded as text.
	OpenAIVisionModel = openai.ChatModelGPT4oMini

	// OpenAIBatchSize balances requests-per-minute vs tokens-per-minute rate limits.
	OpenAIBatchSize = 500
)

const describeFramePrompt = `Describe this lecture video frame for search indexing. ` +
	`Transcribe any slide title, equations, code or diagram labels, then summarize what is shown in one or two sentences.`

// OpenAIEmbedder embeds text with an OpenAI embedding model. OpenAI has no
// image embedding endpoint, so frames are first described by a vision model
// and the description is embedded into the same text space.
type OpenAIEmbedder struct {
	client      *Client
	model       string
	visionModel string
	batchSize   int
}

// NewOpenAIEmbedder creates an OpenAIEmbedder. Empty model names and a
// non-positive batch size fall back to the package defaults.
func NewOpenAIEmbedder(client *Client, model, visionModel string, batchSize int) *OpenAIEmbedder {
	if model == "" {
		model = OpenAIModel
	}
	if visionModel == "" {
		visionModel = OpenAIVisionModel
	}
	if batchSize <= 0 {
		batchSize = OpenAIBatchSize
	}
	return &OpenAIEmbedder{
		client:      client,
		model:       model,
		visionModel: visionModel,
		batchSize:   batchSize,
	}
}

// Dimension returns the vector size of text-embedding-3-small.
func (e *OpenAIEmbedder) Dimension() int {
	return OpenAIDimension
}

// EmbedTexts generates embeddings for the given texts in batches.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for _, b := range batches(len(texts), e.batchSize) {
		embeddings, err := e.embedBatchWithRetry(ctx, texts[b[0]:b[1]])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", b[0], b[1], err)
		}
		all = append(all, embeddings...)
	}

	return all, nil
}

// EmbedQuery embeds a single search question.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	vecs, err := e.embedBatchWithRetry(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedImages describes each frame and embeds the descriptions.
func (e *OpenAIEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	descriptions := make([]string, len(images))
	for i, img := range images {
		desc, err := e.describeWithRetry(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("describe frame %d: %w", i, err)
		}
		descriptions[i] = desc
	}
	return e.EmbedTexts(ctx, descriptions)
}

// embedBatchWithRetry generates embeddings for a single batch.
// Retries with exponential backoff on rate limit errors (HTTP 429).
// Other errors are treated as permanent and fail immediately.
func (e *OpenAIEmbedder) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var embeddings [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: e.model,
		})
		if err != nil {
			return retryable(err)
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: sent %d texts, got %d vectors",
				ErrCountMismatch, len(texts), len(resp.Data)))
		}

		embeddings = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			embeddings[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	err := backoff.Retry(operation, newBackoff(ctx))
	return embeddings, err
}

func (e *OpenAIEmbedder) describeWithRetry(ctx context.Context, frame []byte) (string, error) {
	var description string

	operation := func() error {
		resp, err := e.client.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
					openai.TextContentPart(describeFramePrompt),
					openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
						URL:    jpegDataURI(frame),
						Detail: "low",
					}),
				}),
			},
			Model:     e.visionModel,
			MaxTokens: openai.Int(200),
		})
		if err != nil {
			return retryable(err)
		}
		if len(resp.Choices) == 0 {
			return backoff.Permanent(errors.New("vision model returned no choices"))
		}
		description = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}

	err := backoff.Retry(operation, newBackoff(ctx))
	return description, err
}

// retryable keeps rate limit errors retryable and marks everything else permanent.
func retryable(err error) error {
	if isRateLimitError(err) {
		return err
	}
	return backoff.Permanent(err)
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

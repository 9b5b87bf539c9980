package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
)

const (
	ProviderCohere = "cohere"

	// CohereModel embeds text and images into one space.
	CohereModel = "embed-english-v3.0"

	// CohereDimension is the vector dimension for embed-english-v3.0.
	CohereDimension = 1024

	// CohereBatchSize is the Embed API's per-request text limit.
	CohereBatchSize = 96
)

// CohereEmbedder embeds caption text and frames with a Cohere v3 multimodal
// model, so both land in the same vector space without an intermediate caption.
type CohereEmbedder struct {
	client    *cohereclient.Client
	model     string
	batchSize int
}

// NewCohereEmbedder creates a CohereEmbedder. apiKey is required.
func NewCohereEmbedder(apiKey, model string, batchSize int) (*CohereEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("COHERE_API_KEY environment variable not set")
	}
	if model == "" {
		model = CohereModel
	}
	if batchSize <= 0 || batchSize > CohereBatchSize {
		batchSize = CohereBatchSize
	}

	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &CohereEmbedder{client: client, model: model, batchSize: batchSize}, nil
}

// Dimension returns the vector size of embed-english-v3.0.
func (e *CohereEmbedder) Dimension() int {
	return CohereDimension
}

// EmbedTexts embeds caption text as search documents.
func (e *CohereEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for _, b := range batches(len(texts), e.batchSize) {
		vecs, err := e.embedWithRetry(ctx, &cohere.V2EmbedRequest{
			Texts:     texts[b[0]:b[1]],
			InputType: cohere.EmbedInputTypeSearchDocument,
		}, b[1]-b[0])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", b[0], b[1], err)
		}
		all = append(all, vecs...)
	}

	return all, nil
}

// EmbedQuery embeds a question with the search-query input type.
func (e *CohereEmbedder) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	vecs, err := e.embedWithRetry(ctx, &cohere.V2EmbedRequest{
		Texts:     []string{question},
		InputType: cohere.EmbedInputTypeSearchQuery,
	}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedImages embeds JPEG frames. The API accepts one image per request.
func (e *CohereEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	out := make([][]float32, 0, len(images))
	for i, img := range images {
		vecs, err := e.embedWithRetry(ctx, &cohere.V2EmbedRequest{
			Images:    []string{jpegDataURI(img)},
			InputType: cohere.EmbedInputTypeImage,
		}, 1)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, vecs[0])
	}
	return out, nil
}

func (e *CohereEmbedder) embedWithRetry(ctx context.Context, req *cohere.V2EmbedRequest, want int) ([][]float32, error) {
	req.Model = e.model
	req.EmbeddingTypes = []cohere.EmbeddingType{cohere.EmbeddingTypeFloat}

	var out [][]float32
	operation := func() error {
		resp, err := e.client.V2.Embed(ctx, req)
		if err != nil {
			if isCohereRateLimit(err) {
				return err
			}
			return backoff.Permanent(fmt.Errorf("cohere embed error: %w", err))
		}
		if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
			return backoff.Permanent(errors.New("cohere embed returned no float embeddings"))
		}
		if len(resp.Embeddings.Float) != want {
			return backoff.Permanent(fmt.Errorf("%w: sent %d inputs, got %d vectors",
				ErrCountMismatch, want, len(resp.Embeddings.Float)))
		}

		out = make([][]float32, len(resp.Embeddings.Float))
		for i, vec := range resp.Embeddings.Float {
			out[i] = toFloat32(vec)
		}
		return nil
	}

	err := backoff.Retry(operation, newBackoff(ctx))
	return out, err
}

func isCohereRateLimit(err error) bool {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

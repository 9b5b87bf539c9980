package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client shared by embedding and answer generation.
type Client struct {
	client *openai.Client
}

// NewClient creates a new OpenAI client.
// It reads the OPENAI_API_KEY from the environment and returns an error if not set.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from environment
	client := openai.NewClient()

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages (e.g. llm).
func (c *Client) Client() *openai.Client {
	return c.client
}

// Options selects and tunes an Embedder.
type Options struct {
	Provider    string // "cohere" (default) or "openai"
	Model       string
	VisionModel string
	BatchSize   int
}

// New builds the Embedder named by opts.Provider. The OpenAI provider reuses
// oa, which may be nil when another provider is selected.
func New(opts Options, oa *Client) (Embedder, error) {
	switch opts.Provider {
	case "", ProviderCohere:
		return NewCohereEmbedder(os.Getenv("COHERE_API_KEY"), opts.Model, opts.BatchSize)
	case ProviderOpenAI:
		if oa == nil {
			var err error
			if oa, err = NewClient(); err != nil {
				return nil, err
			}
		}
		return NewOpenAIEmbedder(oa, opts.Model, opts.VisionModel, opts.BatchSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}

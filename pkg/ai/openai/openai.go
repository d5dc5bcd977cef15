package openai

import (
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client implements ai.Client against any OpenAI-compatible API.
// Separate clients for chat and embeddings allow the two workloads to be
// served by different endpoints.
type Client struct {
	completionModel string
	embeddingModel  string

	timeout time.Duration

	chat  *openai.Client
	embed *openai.Client
}

// NewClientParams defines the configuration parameters for creating a Client.
type NewClientParams struct {
	CompletionModel string
	EmbeddingModel  string

	ChatURL      string
	ChatKey      string
	EmbeddingURL string
	EmbeddingKey string

	Timeout time.Duration
}

// NewClient creates a Client configured with the provided parameters,
// with separate underlying clients for chat and embedding endpoints.
func NewClient(params NewClientParams) *Client {
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		completionModel: params.CompletionModel,
		embeddingModel:  params.EmbeddingModel,

		timeout: timeout,

		chat:  newAPIClient(params.ChatURL, params.ChatKey),
		embed: newAPIClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newAPIClient(baseURL string, apiKey string) *openai.Client {
	options := []option.RequestOption{}
	if apiKey != "" {
		options = append(options, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}

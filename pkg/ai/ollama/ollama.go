package ollama

import (
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// Client implements ai.Client using a locally-hosted Ollama server.
// A weighted semaphore caps in-flight requests so a build with many
// parallel extractions does not overwhelm the model server.
type Client struct {
	completionModel string
	embeddingModel  string

	timeout time.Duration
	reqLock *semaphore.Weighted

	baseURL *url.URL

	api *api.Client
}

// NewClientParams contains configuration options for creating a Client.
type NewClientParams struct {
	CompletionModel string
	EmbeddingModel  string

	BaseURL string
	ApiKey  string

	// Timeout bounds a single model call. Build-time completions on edge
	// hardware can take minutes; zero falls back to 5 minutes.
	Timeout time.Duration

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewClient creates a new Ollama-based AI client. It connects to the server
// at BaseURL (or the Ollama default if empty) and uses the configured models
// for completion and embedding requests.
func NewClient(params NewClientParams) (*Client, error) {
	var (
		u   *url.URL
		err error
	)

	base := params.BaseURL
	if base == "" {
		base = "http://127.0.0.1:11434"
	}
	u, err = url.Parse(base)
	if err != nil {
		return nil, err
	}

	httpClient := http.DefaultClient
	if params.ApiKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.ApiKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &Client{
		completionModel: params.CompletionModel,
		embeddingModel:  params.EmbeddingModel,

		timeout: timeout,
		reqLock: semaphore.NewWeighted(maxConcurrent),

		baseURL: u,

		api: api.NewClient(u, httpClient),
	}, nil
}

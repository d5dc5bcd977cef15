package ollama

import (
	"context"
	"strings"

	"github.com/GPTNLP/AURA/pkg/ai"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model on Ollama.
//
// The input is provided as a byte slice and converted to a string before
// being sent to the embedding model.
func (c *Client) GenerateEmbedding(
	ctx context.Context,
	input []byte,
) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return nil, ai.MalformedResponse("refusing to embed empty input")
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	}

	res, err := c.api.Embed(rCtx, req)
	if err != nil {
		return nil, ai.ServiceUnavailable(err)
	}

	if len(res.Embeddings) == 0 || len(res.Embeddings[0]) == 0 {
		return nil, ai.MalformedResponse("embedding response has no vector")
	}

	vec := res.Embeddings[0]
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, nil
}

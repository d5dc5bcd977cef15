package openai

import (
	"context"
	"strings"

	"github.com/GPTNLP/AURA/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model.
func (c *Client) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return nil, ai.MalformedResponse("refusing to embed empty input")
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(string(input))},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	response, err := c.embed.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, ai.ServiceUnavailable(err)
	}
	if len(response.Data) == 0 || len(response.Data[0].Embedding) == 0 {
		return nil, ai.MalformedResponse("embedding response has no vector")
	}

	vec := response.Data[0].Embedding
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out, nil
}

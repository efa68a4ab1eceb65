package openai

import (
	"context"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// EmbeddingGenerator is the ai.EmbeddingGenerator of an OpenAI embedding model.
type EmbeddingGenerator struct {
	client  *Client
	modelID string
}

func (c *Client) EmbeddingGenerator() *EmbeddingGenerator {
	return &EmbeddingGenerator{client: c, modelID: c.cfg.EmbeddingModelID}
}

func (g *EmbeddingGenerator) ServiceID() string { return g.client.cfg.ServiceID + "_embedding" }
func (g *EmbeddingGenerator) ModelID() string   { return g.modelID }

// GenerateEmbeddings returns one vector per text, in input order.
func (g *EmbeddingGenerator) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	resp, err := g.client.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input:      texts,
		Model:      goopenai.EmbeddingModel(g.modelID),
		Dimensions: g.client.cfg.EmbeddingDimensions,
	})
	err = classifyError(err)
	g.client.observeOperation("embeddings", g.modelID, time.Since(start), err, int64(len(texts)))
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: %d embeddings for %d inputs", ErrEmptyResponse, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmptyResponse, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

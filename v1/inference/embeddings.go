package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/ai"
)

var _ ai.EmbeddingGenerator = (*EmbeddingGenerator)(nil)

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbeddingGenerator computes embeddings through POST {endpoint}/embeddings.
type EmbeddingGenerator struct {
	client *Client
	model  string
}

// EmbeddingGenerator returns the generator for the configured embedding
// model, or for model when given.
func (c *Client) EmbeddingGenerator(model ...string) *EmbeddingGenerator {
	m := c.cfg.EmbeddingModel
	if len(model) > 0 && model[0] != "" {
		m = model[0]
	}
	return &EmbeddingGenerator{client: c, model: m}
}

func (g *EmbeddingGenerator) ServiceID() string { return g.client.cfg.ServiceID + "_embedding" }
func (g *EmbeddingGenerator) ModelID() string   { return g.model }

// GenerateEmbeddings returns one vector per text, in input order. Inputs
// larger than the configured batch size are sent in several requests.
func (g *EmbeddingGenerator) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}
	if g.model == "" {
		return nil, ErrNoModel
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.client.cfg.BatchSize {
		end := min(start+g.client.cfg.BatchSize, len(texts))
		batch, err := g.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (g *EmbeddingGenerator) embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var parsed embeddingsResponse
	err := g.client.postJSON(ctx, "/embeddings", embeddingsRequest{Model: g.model, Input: texts}, &parsed)
	if err == nil && len(parsed.Data) != len(texts) {
		err = fmt.Errorf("%w: %d embeddings for %d inputs", ErrUnexpectedResponse, len(parsed.Data), len(texts))
	}
	g.client.observeOperation("embeddings", g.model, time.Since(start), err, int64(len(texts)))
	if err != nil {
		g.client.logger.Error("embedding request failed", err, map[string]interface{}{
			"model":  g.model,
			"inputs": len(texts),
		})
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrUnexpectedResponse, d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

package inference

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/ai"
)

var _ ai.Reranker = (*Reranker)(nil)

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Reranker scores documents through POST {endpoint}/rerank.
type Reranker struct {
	client *Client
	model  string
}

func (c *Client) Reranker() *Reranker {
	return &Reranker{client: c, model: c.cfg.RerankModel}
}

func (r *Reranker) ServiceID() string { return r.client.cfg.ServiceID + "_rerank" }
func (r *Reranker) ModelID() string   { return r.model }

// Rerank returns the documents ordered by relevance, best first. topN <= 0
// returns all documents.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topN int) ([]ai.RerankResult, error) {
	if len(documents) == 0 {
		return nil, ErrNoTexts
	}
	if r.model == "" {
		return nil, ErrNoModel
	}

	start := time.Now()
	var parsed rerankResponse
	err := r.client.postJSON(ctx, "/rerank", rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      max(topN, 0),
	}, &parsed)
	r.client.observeOperation("rerank", r.model, time.Since(start), err, int64(len(documents)))
	if err != nil {
		r.client.logger.Error("rerank request failed", err, map[string]interface{}{"model": r.model})
		return nil, err
	}

	out := make([]ai.RerankResult, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(documents) {
			return nil, fmt.Errorf("%w: rerank index %d out of range", ErrUnexpectedResponse, res.Index)
		}
		out = append(out, ai.RerankResult{Index: res.Index, Score: res.RelevanceScore, Document: documents[res.Index]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/connectors/v1/ai"
	"github.com/Aleph-Alpha/connectors/v1/kernel"
)

// DefaultTextField is the internal payload field holding the embedded text.
const DefaultTextField = "text"

const defaultPluginTop = 3

// TextSearch answers text queries against a Service by embedding the query
// first. With a reranker the vector hits are re-ordered by the reranker's
// relevance score.
type TextSearch struct {
	embedder  ai.EmbeddingGenerator
	store     Service
	reranker  ai.Reranker
	textField string
	candidate int
}

type TextSearchOption func(*TextSearch)

// WithReranker re-orders vector hits. candidates is how many hits are
// fetched per requested result before reranking.
func WithReranker(r ai.Reranker, candidates int) TextSearchOption {
	return func(s *TextSearch) {
		s.reranker = r
		if candidates > 1 {
			s.candidate = candidates
		}
	}
}

// WithTextField overrides DefaultTextField.
func WithTextField(field string) TextSearchOption {
	return func(s *TextSearch) {
		if field != "" {
			s.textField = field
		}
	}
}

func NewTextSearch(embedder ai.EmbeddingGenerator, store Service, opts ...TextSearchOption) *TextSearch {
	s := &TextSearch{
		embedder:  embedder,
		store:     store,
		textField: DefaultTextField,
		candidate: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the topK best matches for query.
func (s *TextSearch) Search(ctx context.Context, collection, query string, topK int, filters *FilterSet) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", ErrInvalidSearchRequest)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be greater than 0", ErrInvalidSearchRequest)
	}
	vectors, err := s.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding query: expected 1 vector, got %d", len(vectors))
	}

	fetch := topK
	if s.reranker != nil {
		fetch = topK * s.candidate
	}
	res, err := s.store.Search(ctx, SearchRequest{
		CollectionName: collection,
		Vector:         vectors[0],
		TopK:           fetch,
		Filters:        filters,
	})
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, nil
	}
	hits := res[0]
	if s.reranker == nil || len(hits) == 0 {
		return hits, nil
	}
	return s.rerank(ctx, query, hits, topK)
}

func (s *TextSearch) rerank(ctx context.Context, query string, hits []SearchResult, topK int) ([]SearchResult, error) {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = s.text(h)
	}
	ranked, err := s.reranker.Rerank(ctx, query, docs, topK)
	if err != nil {
		return nil, fmt.Errorf("reranking: %w", err)
	}
	out := make([]SearchResult, 0, len(ranked))
	for _, r := range ranked {
		if r.Index < 0 || r.Index >= len(hits) {
			return nil, fmt.Errorf("reranking: index %d out of range", r.Index)
		}
		hit := hits[r.Index]
		hit.Score = float32(r.Score)
		out = append(out, hit)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *TextSearch) text(r SearchResult) string {
	if v, ok := r.Payload[s.textField].(string); ok {
		return v
	}
	return ""
}

type searchInput struct {
	Query string `json:"query" jsonschema:"description=What to look for"`
	Top   int    `json:"top,omitempty" jsonschema:"description=Maximum number of passages to return"`
}

// Plugin exposes the collection to a model as a plugin with a single
// "search" function. The function returns the matching texts separated by
// blank lines, or a short notice when nothing matched.
func (s *TextSearch) Plugin(name, collection, textField string) (*kernel.Plugin, error) {
	if collection == "" {
		return nil, ErrInvalidCollectionName
	}
	field := s.textField
	if textField != "" {
		field = textField
	}
	search := func(ctx context.Context, in searchInput) (string, error) {
		top := in.Top
		if top <= 0 {
			top = defaultPluginTop
		}
		hits, err := s.Search(ctx, collection, in.Query, top, nil)
		if err != nil {
			if errors.Is(err, ErrInvalidSearchRequest) {
				return "", fmt.Errorf("%w: %w", kernel.ErrInvalidArguments, err)
			}
			return "", err
		}
		texts := make([]string, 0, len(hits))
		for _, h := range hits {
			if v, ok := h.Payload[field].(string); ok && v != "" {
				texts = append(texts, v)
			}
		}
		if len(texts) == 0 {
			return "no matching documents", nil
		}
		return strings.Join(texts, "\n\n"), nil
	}
	fn, err := kernel.NewFunction(
		"search",
		fmt.Sprintf("Searches the %s collection and returns the most relevant passages", collection),
		search,
		kernel.WithReturnDescription("matching passages separated by blank lines"),
	)
	if err != nil {
		return nil, err
	}
	return kernel.NewPlugin(name, fmt.Sprintf("Semantic search over %s", collection), fn)
}

package vectordb

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"sync"
)

var _ Service = (*MemoryStore)(nil)

// MemoryStore is an in-process Service. Scores are cosine similarities and
// filters are evaluated against the stored payloads. It suits tests and
// small corpora; nothing is persisted.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	size   int
	points map[string]Record
	order  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: map[string]*memoryCollection{}}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, name string, vectorSize uint64) error {
	if name == "" {
		return ErrInvalidCollectionName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return nil
	}
	s.collections[name] = &memoryCollection{size: int(vectorSize), points: map[string]Record{}}
	return nil
}

func (s *MemoryStore) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *MemoryStore) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) GetCollection(_ context.Context, name string) (*Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return &Collection{
		Name:        name,
		Status:      "Green",
		VectorSize:  c.size,
		Distance:    "Cosine",
		VectorCount: uint64(len(c.points)),
		PointCount:  uint64(len(c.points)),
	}, nil
}

func (s *MemoryStore) ListCollections(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.collections)), nil
}

// Upsert validates every record before writing any.
func (s *MemoryStore) Upsert(_ context.Context, collection string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	for i, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: record [%d] has no id", ErrInvalidRecord, i)
		}
		if c.size > 0 && len(r.Vector) != c.size {
			return fmt.Errorf("%w: record %s has %d dimensions, collection %s expects %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), collection, c.size)
		}
	}
	for _, r := range records {
		if _, exists := c.points[r.ID]; !exists {
			c.order = append(c.order, r.ID)
		}
		c.points[r.ID] = Record{
			ID:      r.ID,
			Vector:  slices.Clone(r.Vector),
			Payload: maps.Clone(r.Payload),
		}
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, collection string, ids []string, withVectors bool) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		r, ok := c.points[id]
		if !ok {
			continue
		}
		rec := Record{ID: r.ID, Payload: maps.Clone(r.Payload)}
		if withVectors {
			rec.Vector = slices.Clone(r.Vector)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	c.order = slices.DeleteFunc(c.order, func(id string) bool {
		_, ok := c.points[id]
		return !ok
	})
	return nil
}

// Search answers every request; a failing request leaves a nil slot and
// contributes to the joined error.
func (s *MemoryStore) Search(ctx context.Context, requests ...SearchRequest) ([][]SearchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: at least one search request is required", ErrInvalidSearchRequest)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([][]SearchResult, len(requests))
	var errs []error
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := s.search(req)
		if err != nil {
			errs = append(errs, fmt.Errorf("request [%d]: %w", i, err))
			continue
		}
		results[i] = res
	}
	return results, errors.Join(errs...)
}

func (s *MemoryStore) search(req SearchRequest) ([]SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, ok := s.collections[req.CollectionName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, req.CollectionName)
	}
	if c.size > 0 && len(req.Vector) != c.size {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s expects %d",
			ErrDimensionMismatch, len(req.Vector), req.CollectionName, c.size)
	}

	var hits []SearchResult
	for _, id := range c.order {
		p := c.points[id]
		if !req.Filters.Matches(p.Payload) {
			continue
		}
		score := cosine(req.Vector, p.Vector)
		if req.ScoreThreshold != nil && score < *req.ScoreThreshold {
			continue
		}
		hit := SearchResult{
			ID:             p.ID,
			Score:          score,
			Payload:        maps.Clone(p.Payload),
			CollectionName: req.CollectionName,
		}
		if req.WithVectors {
			hit.Vector = slices.Clone(p.Vector)
		}
		hits = append(hits, hit)
	}
	// ties keep insertion order
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if req.Skip >= len(hits) {
		return []SearchResult{}, nil
	}
	hits = hits[req.Skip:]
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	return hits, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

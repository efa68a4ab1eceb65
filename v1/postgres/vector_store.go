package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Aleph-Alpha/connectors/v1/observability"
	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

var collectionName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

var _ vectordb.Service = (*VectorStore)(nil)

// VectorStore is a vectordb.Service on pgvector. Every collection is a
// table (id TEXT PRIMARY KEY, embedding vector(N), payload JSONB); scores
// are cosine similarities computed as 1 - (embedding <=> query).
//
// Vectors travel as pgvector's text form ("[1,2,3]") cast to vector, so no
// client-side vector type is needed.
type VectorStore struct {
	pg       *Postgres
	observer observability.Observer
}

type VectorStoreOption func(*VectorStore)

func WithVectorStoreObserver(o observability.Observer) VectorStoreOption {
	return func(s *VectorStore) { s.observer = o }
}

func NewVectorStore(pg *Postgres, opts ...VectorStoreOption) *VectorStore {
	s := &VectorStore{pg: pg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *VectorStore) db(ctx context.Context) *gorm.DB {
	return s.pg.DB().WithContext(ctx)
}

func validCollection(name string) error {
	if !collectionName.MatchString(name) {
		return fmt.Errorf("%w: %q must match %s", vectordb.ErrInvalidCollectionName, name, collectionName)
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

// EnsureCollection installs the vector extension and creates the table.
// An existing table is left untouched.
func (s *VectorStore) EnsureCollection(ctx context.Context, name string, vectorSize uint64) (err error) {
	start := time.Now()
	defer func() { s.observe("ensure_collection", name, start, err, 0) }()

	if err := validCollection(name); err != nil {
		return err
	}
	if vectorSize == 0 {
		return fmt.Errorf("%w: vector size must be greater than 0", vectordb.ErrDimensionMismatch)
	}
	if err := s.db(ctx).Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("[Postgres] enabling pgvector: %w", TranslateError(err))
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, embedding vector(%d) NOT NULL, payload JSONB NOT NULL DEFAULT '{}'::jsonb)",
		quote(name), vectorSize)
	if err := s.db(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("[Postgres] creating collection %s: %w", name, TranslateError(err))
	}
	return nil
}

func (s *VectorStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	if err := validCollection(name); err != nil {
		return false, err
	}
	var exists bool
	err := s.db(ctx).Raw("SELECT to_regclass(?) IS NOT NULL", name).Scan(&exists).Error
	if err != nil {
		return false, TranslateError(err)
	}
	return exists, nil
}

func (s *VectorStore) DeleteCollection(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete_collection", name, start, err, 0) }()

	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	if err := s.db(ctx).Exec("DROP TABLE " + quote(name)).Error; err != nil {
		return TranslateError(err)
	}
	return nil
}

// GetCollection reads the dimension from the column's type modifier.
func (s *VectorStore) GetCollection(ctx context.Context, name string) (*vectordb.Collection, error) {
	exists, err := s.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}

	var size int
	err = s.db(ctx).Raw(
		"SELECT atttypmod FROM pg_attribute WHERE attrelid = to_regclass(?) AND attname = 'embedding'",
		name).Scan(&size).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	var count int64
	if err := s.db(ctx).Raw("SELECT count(*) FROM " + quote(name)).Scan(&count).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &vectordb.Collection{
		Name:        name,
		Status:      "Green",
		VectorSize:  size,
		Distance:    "Cosine",
		VectorCount: uint64(count),
		PointCount:  uint64(count),
	}, nil
}

// ListCollections returns the visible tables with a vector column named
// embedding.
func (s *VectorStore) ListCollections(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db(ctx).Raw(`SELECT c.relname
FROM pg_class c
JOIN pg_attribute a ON a.attrelid = c.oid
JOIN pg_type t ON t.oid = a.atttypid
WHERE c.relkind = 'r' AND a.attname = 'embedding' AND t.typname = 'vector'
  AND pg_table_is_visible(c.oid)
ORDER BY c.relname`).Scan(&names).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return names, nil
}

// Upsert writes all records in one transaction.
func (s *VectorStore) Upsert(ctx context.Context, collection string, records []vectordb.Record) (err error) {
	start := time.Now()
	defer func() { s.observe("upsert", collection, start, err, int64(len(records))) }()

	if err := validCollection(collection); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (id, embedding, payload) VALUES (?, ?::vector, ?::jsonb) "+
			"ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload",
		quote(collection))

	return s.pg.Transaction(ctx, func(tx *gorm.DB) error {
		for _, r := range records {
			if r.ID == "" {
				return fmt.Errorf("%w: record has no id", vectordb.ErrInvalidRecord)
			}
			if len(r.Vector) == 0 {
				return fmt.Errorf("%w: record %s has no vector", vectordb.ErrInvalidRecord, r.ID)
			}
			payload, err := encodePayload(r.Payload)
			if err != nil {
				return fmt.Errorf("%w: record %s: %w", vectordb.ErrInvalidRecord, r.ID, err)
			}
			if err := tx.Exec(stmt, r.ID, vectorLiteral(r.Vector), payload).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type pointRow struct {
	ID        string
	Score     float64
	Payload   []byte
	Embedding string
}

func (r pointRow) payload() (map[string]any, error) {
	if len(r.Payload) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(r.Payload, &m); err != nil {
		return nil, fmt.Errorf("[Postgres] decoding payload of %s: %w", r.ID, err)
	}
	return m, nil
}

// Get returns the stored records in the order of ids, skipping unknown ids.
func (s *VectorStore) Get(ctx context.Context, collection string, ids []string, withVectors bool) ([]vectordb.Record, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []pointRow
	q := fmt.Sprintf("SELECT id, payload, embedding::text AS embedding FROM %s WHERE id IN ?", quote(collection))
	if err := s.db(ctx).Raw(q, ids).Scan(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}

	byID := make(map[string]pointRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]vectordb.Record, 0, len(rows))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		payload, err := r.payload()
		if err != nil {
			return nil, err
		}
		rec := vectordb.Record{ID: r.ID, Payload: payload}
		if withVectors {
			if rec.Vector, err = parseVector(r.Embedding); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
		delete(byID, id)
	}
	return out, nil
}

func (s *VectorStore) Delete(ctx context.Context, collection string, ids []string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete", collection, start, err, int64(len(ids))) }()

	if err := validCollection(collection); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf("DELETE FROM %s WHERE id IN ?", quote(collection))
	return TranslateError(s.db(ctx).Exec(q, ids).Error)
}

// Search answers the requests one after another; a failing request leaves
// a nil slot and contributes to the joined error.
func (s *VectorStore) Search(ctx context.Context, requests ...vectordb.SearchRequest) ([][]vectordb.SearchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: at least one search request is required", vectordb.ErrInvalidSearchRequest)
	}
	results := make([][]vectordb.SearchResult, len(requests))
	var errs []error
	for i, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		res, err := s.search(ctx, req)
		s.observe("search", req.CollectionName, start, err, int64(len(res)))
		if err != nil {
			errs = append(errs, fmt.Errorf("request [%d]: %w", i, err))
			continue
		}
		results[i] = res
	}
	return results, errors.Join(errs...)
}

func (s *VectorStore) search(ctx context.Context, req vectordb.SearchRequest) ([]vectordb.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	query, args, err := searchSQL(req)
	if err != nil {
		return nil, err
	}
	var rows []pointRow
	if err := s.db(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, TranslateError(err)
	}
	out := make([]vectordb.SearchResult, 0, len(rows))
	for _, r := range rows {
		payload, err := r.payload()
		if err != nil {
			return nil, err
		}
		res := vectordb.SearchResult{
			ID:             r.ID,
			Score:          float32(r.Score),
			Payload:        payload,
			CollectionName: req.CollectionName,
		}
		if req.WithVectors {
			if res.Vector, err = parseVector(r.Embedding); err != nil {
				return nil, err
			}
		}
		out = append(out, res)
	}
	return out, nil
}

// searchSQL builds the similarity query for req. Ties are broken by id so
// paging with Skip is stable.
func searchSQL(req vectordb.SearchRequest) (string, []any, error) {
	if err := validCollection(req.CollectionName); err != nil {
		return "", nil, err
	}
	filter, err := filterSQL(req.Filters)
	if err != nil {
		return "", nil, err
	}
	vec := vectorLiteral(req.Vector)

	var b strings.Builder
	args := []any{vec}
	b.WriteString("SELECT id, 1 - (embedding <=> ?::vector) AS score, payload")
	if req.WithVectors {
		b.WriteString(", embedding::text AS embedding")
	}
	b.WriteString(" FROM ")
	b.WriteString(quote(req.CollectionName))

	var where []string
	if filter.sql != "" {
		where = append(where, filter.sql)
		args = append(args, filter.args...)
	}
	if req.ScoreThreshold != nil {
		where = append(where, "1 - (embedding <=> ?::vector) >= ?")
		args = append(args, vec, float64(*req.ScoreThreshold))
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY embedding <=> ?::vector, id LIMIT ? OFFSET ?")
	args = append(args, vec, req.TopK, req.Skip)
	return b.String(), args, nil
}

// vectorLiteral renders v in pgvector's text format.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*8 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("[Postgres] malformed vector %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return []float32{}, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("[Postgres] malformed vector %q: %w", s, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func encodePayload(p map[string]any) (string, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *VectorStore) observe(operation, collection string, start time.Time, err error, size int64) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component: "postgres",
		Operation: operation,
		Resource:  collection,
		Duration:  time.Since(start),
		Error:     err,
		Size:      size,
	})
}

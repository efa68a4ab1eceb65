package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// EnsureCollection creates the collection with cosine distance unless it
// already exists. It is safe to call on every startup.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectorSize uint64) (err error) {
	start := time.Now()
	defer func() { c.observeOperation("ensure_collection", name, time.Since(start), err, 0) }()

	if name == "" {
		return vectordb.ErrInvalidCollectionName
	}
	if vectorSize == 0 {
		return fmt.Errorf("%w: vector size must be greater than 0", vectordb.ErrDimensionMismatch)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	exists, err := c.api.CollectionExists(ctx, name)
	if err != nil {
		return classify("collection exists", err)
	}
	if exists {
		c.logger.Debug("collection already exists", nil, map[string]interface{}{"collection": name})
		return nil
	}

	err = c.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return classify("create collection", err)
	}
	c.logger.Info("created collection", nil, map[string]interface{}{
		"collection":  name,
		"vector_size": vectorSize,
	})
	return nil
}

func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, vectordb.ErrInvalidCollectionName
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	ok, err := c.api.CollectionExists(ctx, name)
	if err != nil {
		return false, classify("collection exists", err)
	}
	return ok, nil
}

func (c *Client) DeleteCollection(ctx context.Context, name string) (err error) {
	start := time.Now()
	defer func() { c.observeOperation("delete_collection", name, time.Since(start), err, 0) }()

	if name == "" {
		return vectordb.ErrInvalidCollectionName
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	exists, err := c.api.CollectionExists(ctx, name)
	if err != nil {
		return classify("collection exists", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, name)
	}
	if err := c.api.DeleteCollection(ctx, name); err != nil {
		return classify("delete collection", err)
	}
	return nil
}

// GetCollection returns the collection's metadata decoupled from the SDK's
// CollectionInfo.
func (c *Client) GetCollection(ctx context.Context, name string) (*vectordb.Collection, error) {
	if name == "" {
		return nil, vectordb.ErrInvalidCollectionName
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	info, err := c.api.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, classify("get collection", err)
	}
	size, distance := extractVectorDetails(info)
	return &vectordb.Collection{
		Name:        name,
		Status:      info.GetStatus().String(),
		VectorSize:  size,
		Distance:    distance,
		VectorCount: derefUint64(info.IndexedVectorsCount),
		PointCount:  derefUint64(info.PointsCount),
	}, nil
}

func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	names, err := c.api.ListCollections(ctx)
	if err != nil {
		return nil, classify("list collections", err)
	}
	return names, nil
}

// Upsert writes records in chunks of Config.BatchSize, waiting for each
// chunk to be persisted.
func (c *Client) Upsert(ctx context.Context, collection string, records []vectordb.Record) (err error) {
	start := time.Now()
	defer func() { c.observeOperation("upsert", collection, time.Since(start), err, int64(len(records))) }()

	if collection == "" {
		return vectordb.ErrInvalidCollectionName
	}
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %s has no vector", vectordb.ErrInvalidRecord, r.ID)
		}
		if points[i], err = toPoint(r); err != nil {
			return err
		}
	}

	wait := true
	for lo := 0; lo < len(points); lo += c.cfg.BatchSize {
		hi := min(lo+c.cfg.BatchSize, len(points))
		reqCtx, cancel := c.withTimeout(ctx)
		_, err := c.api.Upsert(reqCtx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points[lo:hi],
			Wait:           &wait,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("batch [%d:%d]: %w", lo, hi, classify("upsert", err))
		}
		c.logger.Debug("upserted batch", nil, map[string]interface{}{
			"collection": collection,
			"from":       lo,
			"to":         hi,
		})
	}
	return nil
}

func (c *Client) Get(ctx context.Context, collection string, ids []string, withVectors bool) ([]vectordb.Record, error) {
	if collection == "" {
		return nil, vectordb.ErrInvalidCollectionName
	}
	if len(ids) == 0 {
		return nil, nil
	}
	pids, err := toPointIDs(ids)
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	points, err := c.api.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            pids,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, classify("get points", err)
	}
	return fromRetrievedPoints(points)
}

func (c *Client) Delete(ctx context.Context, collection string, ids []string) (err error) {
	start := time.Now()
	defer func() { c.observeOperation("delete", collection, time.Since(start), err, int64(len(ids))) }()

	if collection == "" {
		return vectordb.ErrInvalidCollectionName
	}
	if len(ids) == 0 {
		return nil
	}
	pids, err := toPointIDs(ids)
	if err != nil {
		return err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	wait := true
	resp, err := c.api.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pids...),
		Wait:           &wait,
	})
	if err != nil {
		return classify("delete", err)
	}
	c.logger.Debug("deleted points", nil, map[string]interface{}{
		"collection": collection,
		"status":     resp.GetStatus().String(),
		"count":      len(ids),
	})
	return nil
}

// Search runs every request concurrently, at most
// Config.MaxConcurrentSearches at a time. Results keep the order of the
// requests; a failed request leaves a nil slot and is reported in the
// joined error.
//
// Example:
//
//	results, err := client.Search(ctx,
//	    vectordb.SearchRequest{CollectionName: "docs", Vector: vec1, TopK: 10},
//	    vectordb.SearchRequest{CollectionName: "docs", Vector: vec2, TopK: 5},
//	)
//	// results[0] = results for first request
//	// results[1] = results for second request
func (c *Client) Search(ctx context.Context, requests ...vectordb.SearchRequest) ([][]vectordb.SearchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: at least one search request is required", vectordb.ErrInvalidSearchRequest)
	}

	results := make([][]vectordb.SearchResult, len(requests))
	errs := make([]error, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentSearches)
	for i, req := range requests {
		g.Go(func() error {
			start := time.Now()
			res, err := c.search(gctx, req)
			c.observeOperation("search", req.CollectionName, time.Since(start), err, int64(len(res)))
			if err != nil {
				errs[i] = fmt.Errorf("request [%d]: %w", i, err)
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

func (c *Client) search(ctx context.Context, req vectordb.SearchRequest) ([]vectordb.SearchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	filter, err := toFilter(req.Filters)
	if err != nil {
		return nil, err
	}
	limit := uint64(req.TopK)
	query := &qdrant.QueryPoints{
		CollectionName: req.CollectionName,
		Query:          qdrant.NewQueryDense(req.Vector),
		Limit:          &limit,
		Filter:         filter,
		ScoreThreshold: req.ScoreThreshold,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(req.WithVectors),
	}
	if req.Skip > 0 {
		offset := uint64(req.Skip)
		query.Offset = &offset
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	points, err := c.api.Query(ctx, query)
	if err != nil {
		return nil, classify("search", err)
	}
	return fromScoredPoints(req.CollectionName, points)
}

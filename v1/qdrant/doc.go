// Package qdrant provides a modular, dependency-injected client for the Qdrant vector database.
//
// The package implements [vectordb.Service] on top of the official gRPC client,
// so the in-memory store, Qdrant and pgvector are interchangeable behind the
// text search and ingestion pipeline of package vectordb.
//
// # Core Features
//
//   - Managed client lifecycle with Fx integration
//   - Config struct supporting environment and YAML loading
//   - Health check on client initialization
//   - Batched upserts with configurable batch size
//   - Concurrent multi-request search bounded by MaxConcurrentSearches
//   - DB-agnostic filters translated to native Qdrant conditions
//   - String ids of any shape (see Point IDs)
//
// # Basic Usage
//
//	import (
//	    "github.com/Aleph-Alpha/connectors/v1/qdrant"
//	    "github.com/Aleph-Alpha/connectors/v1/vectordb"
//	)
//
//	client, err := qdrant.NewQdrantClient(qdrant.NewConfig(), log)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	var store vectordb.Service = client
//	_ = store.EnsureCollection(ctx, "documents", 1536)
//	_ = store.Upsert(ctx, "documents", []vectordb.Record{
//	    {ID: "doc-1", Vector: vec, Payload: vectordb.BuildPayload(
//	        map[string]any{"text": "..."},
//	        map[string]any{"lang": "en"},
//	    )},
//	})
//
//	results, err := store.Search(ctx, vectordb.SearchRequest{
//	    CollectionName: "documents",
//	    Vector:         query,
//	    TopK:           5,
//	    Filters:        vectordb.NewFilterSet(vectordb.Must(vectordb.NewUserMatch("lang", "en"))),
//	})
//
// # FX Module Integration
//
//	app := fx.New(
//	    logger.FXModule,
//	    qdrant.FXModule,
//	    fx.Provide(qdrant.NewConfig),
//	)
//
// The module provides *qdrant.Client and a vectordb.Service tagged
// `name:"qdrant"`, checks health on start and closes the connections on stop.
//
// # Point IDs
//
// Qdrant only accepts unsigned integers and UUIDs as point ids. Ids of that
// shape are passed through. Any other string is mapped to a name-based UUID
// (SHA-1) and the original is stored in the payload under [OriginalIDField];
// reads restore it and strip the field, so callers always see their own ids.
//
// # Filtering
//
//	| vectordb condition    | Qdrant condition                      |
//	|-----------------------|---------------------------------------|
//	| MatchCondition        | match keyword / integer / bool        |
//	| MatchAnyCondition     | match keywords / integers             |
//	| MatchExceptCondition  | match except keywords / integers      |
//	| NumericRangeCondition | range                                 |
//	| TimeRangeCondition    | datetime range                        |
//	| IsNullCondition       | is_null                               |
//	| IsEmptyCondition      | is_empty                              |
//
// A match on a fractional number becomes a closed range, since Qdrant only
// matches integers exactly. User fields resolve to "custom.<field>".
//
// # Errors
//
// gRPC NotFound maps to vectordb.ErrCollectionNotFound and dimension errors
// to vectordb.ErrDimensionMismatch, so callers can use errors.Is without
// depending on this package.
//
// # Testing
//
// Unit tests cover the conversions. The integration test starts Qdrant with
// testcontainers:
//
//	go test -tags integration ./v1/qdrant/...
package qdrant

package vectordb

import "context"

// Service is the common interface for all vector databases.
// It provides a database-agnostic abstraction for vector similarity search,
// allowing applications to switch between different vector databases
// (Qdrant, pgvector, in-memory) without changing application code.
//
// Example usage:
//
//	func NewSearchService(db vectordb.Service) *SearchService {
//	    return &SearchService{db: db}
//	}
//
//	// Works with any implementation:
//	// - qdrant.NewQdrantClient(cfg)
//	// - postgres.NewVectorStore(pg)
//	// - vectordb.NewMemoryStore()
type Service interface {
	// EnsureCollection creates a collection if it doesn't exist.
	// Safe to call multiple times: no-op if collection already exists.
	EnsureCollection(ctx context.Context, name string, vectorSize uint64) error

	CollectionExists(ctx context.Context, name string) (bool, error)

	DeleteCollection(ctx context.Context, name string) error

	// GetCollection retrieves metadata about a collection.
	GetCollection(ctx context.Context, name string) (*Collection, error)

	// ListCollections returns names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, collection string, records []Record) error

	// Get returns the records with the given IDs. Unknown IDs are skipped.
	Get(ctx context.Context, collection string, ids []string, withVectors bool) ([]Record, error)

	// Delete removes points by their IDs from a collection.
	Delete(ctx context.Context, collection string, ids []string) error

	// Search performs similarity search across one or more requests.
	// Each request can target a different collection with different filters.
	// Returns:
	//   - results: slice of result slices, one []SearchResult per request
	//   - err: per-request errors joined
	//
	// Example:
	//   results, err := db.Search(ctx,
	//       SearchRequest{CollectionName: "docs", Vector: vec1, TopK: 10},
	//       SearchRequest{CollectionName: "docs", Vector: vec2, TopK: 5, Filters: filters},
	//   )
	Search(ctx context.Context, requests ...SearchRequest) ([][]SearchResult, error)
}

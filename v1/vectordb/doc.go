// Package vectordb provides a database-agnostic abstraction for vector
// similarity search, plus the text search and ingestion built on it.
//
// # Overview
//
// [Service] is implemented by every vector store of this module
// ([MemoryStore], qdrant.Client, postgres.VectorStore), so applications and
// the kernel plugins built on top switch stores without code changes.
//
//	┌─────────────────────────────────────────────────────────────┐
//	│        TextSearch / Ingestor / search plugin                │
//	└──────────────────────────┬──────────────────────────────────┘
//	                           │
//	                           ▼
//	┌─────────────────────────────────────────────────────────────┐
//	│                     vectordb.Service                        │
//	│          (common interface + DB-agnostic types)             │
//	└──────────────────────────┬──────────────────────────────────┘
//	                           │
//	        ┌──────────────────┼──────────────────┐
//	        ▼                  ▼                  ▼
//	┌───────────────┐  ┌───────────────┐  ┌────────────────┐
//	│  MemoryStore  │  │ qdrant.Client │  │postgres.Vector │
//	│               │  │               │  │     Store      │
//	└───────────────┘  └───────────────┘  └────────────────┘
//
// # Usage
//
// Ingest documents, then search them by text:
//
//	import "github.com/Aleph-Alpha/connectors/v1/vectordb"
//
//	store := vectordb.NewMemoryStore()
//	_ = store.EnsureCollection(ctx, "docs", 1536)
//
//	ing, err := vectordb.NewIngestor(embedder, store, vectordb.IngestConfig{})
//	if err != nil {
//	    return err
//	}
//	defer ing.Close()
//	perDoc, err := ing.Ingest(ctx, "docs", []vectordb.Document{
//	    {ID: "a", Text: "Paris is the capital of France", Payload: vectordb.BuildPayload(
//	        nil, map[string]any{"lang": "en"})},
//	})
//
//	search := vectordb.NewTextSearch(embedder, store)
//	hits, err := search.Search(ctx, "docs", "capital of france", 3,
//	    vectordb.NewFilterSet(vectordb.Must(vectordb.NewUserMatch("lang", "en"))))
//
// Expose the collection to a model:
//
//	plugin, err := search.Plugin("docs", "docs", "")
//	k.AddPlugin(plugin)
//
// Raw vector search takes one or more requests and answers each in order:
//
//	results, err := store.Search(ctx, vectordb.SearchRequest{
//	    CollectionName: "docs",
//	    Vector:         vector,
//	    TopK:           10,
//	    Filters: vectordb.NewFilterSet(
//	        vectordb.Must(vectordb.NewMatch("status", "published")),
//	        vectordb.MustNot(vectordb.NewUserIsEmpty("tags")),
//	    ),
//	})
//
// # Filter Semantics
//
// Must requires every condition, MustNot rejects a point when any condition
// matches, and a non-empty Should requires at least one match. A nil
// FilterSet matches everything. Filters round-trip through JSON so they can
// be accepted from API requests.
//
// # Filter Types
//
// The package provides DB-agnostic filter conditions:
//
//	| Type                  | Description                  | SQL Equivalent                    |
//	|-----------------------|------------------------------|-----------------------------------|
//	| MatchCondition        | Exact value match            | WHERE field = value               |
//	| MatchAnyCondition     | Value in set                 | WHERE field IN (...)              |
//	| MatchExceptCondition  | Value not in set             | WHERE field NOT IN (...)          |
//	| NumericRangeCondition | Numeric range                | WHERE field >= min AND field <= max|
//	| TimeRangeCondition    | Datetime range               | WHERE created_at BETWEEN ...      |
//	| IsNullCondition       | Field is null                | WHERE field IS NULL               |
//	| IsEmptyCondition      | Field is empty/null/missing  | WHERE field IS NULL OR field = '' |
//
// Use convenience constructors for cleaner code:
//
//	// Internal field (top-level in payload)
//	vectordb.NewMatch("status", "published")
//
//	// User-defined field (stored under "custom." prefix)
//	vectordb.NewUserMatch("category", "research")
//
//	// Range conditions with NumericRange/TimeRange structs
//	vectordb.NewNumericRange("price", vectordb.NumericRange{Gte: &min, Lt: &max})
//	vectordb.NewTimeRange("created_at", vectordb.TimeRange{AtOrAfter: &start, Before: &end})
package vectordb

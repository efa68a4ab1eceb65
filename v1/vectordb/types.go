package vectordb

import "fmt"

// SearchRequest represents a single similarity search query.
// Use with Service.Search() for single or batch queries.
type SearchRequest struct {
	// CollectionName is the target collection to search in
	CollectionName string `json:"collectionName"`

	// Vector is the query embedding to find similar vectors for
	Vector []float32 `json:"vector"`

	// TopK is the maximum number of results to return
	TopK int `json:"maxResults"`

	// Skip drops the first results, for paging.
	Skip int `json:"skip,omitempty"`

	// Filters is optional metadata filtering (AND/OR/NOT logic)
	Filters *FilterSet `json:"filters,omitempty"`

	// WithVectors returns the stored vectors with the results.
	WithVectors bool `json:"withVectors,omitempty"`

	// ScoreThreshold drops results scoring below it.
	ScoreThreshold *float32 `json:"scoreThreshold,omitempty"`
}

// Validate checks the parameters every store requires.
func (r SearchRequest) Validate() error {
	if r.CollectionName == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidSearchRequest)
	}
	if len(r.Vector) == 0 {
		return fmt.Errorf("%w: vector cannot be empty", ErrInvalidSearchRequest)
	}
	if r.TopK <= 0 {
		return fmt.Errorf("%w: topK must be greater than 0", ErrInvalidSearchRequest)
	}
	if r.Skip < 0 {
		return fmt.Errorf("%w: skip cannot be negative", ErrInvalidSearchRequest)
	}
	return nil
}

// SearchResult represents a single search result with its similarity score.
// This is database-agnostic: payload is converted to map[string]any.
type SearchResult struct {
	// ID is the unique identifier of the matched point
	ID string `json:"id"`

	// Score is the similarity score (higher = more similar for cosine)
	Score float32 `json:"score"`

	// Payload contains the metadata stored with the vector
	Payload map[string]any `json:"payload"`

	// Vector is the stored embedding (only populated if requested)
	Vector []float32 `json:"vector,omitempty"`

	// CollectionName identifies which collection this result came from
	CollectionName string `json:"collectionName,omitempty"`
}

// Record is a vector with its payload, as written by Upsert and read by Get.
type Record struct {
	// ID is the unique identifier for this record
	ID string `json:"id"`

	// Vector is the dense embedding representation
	Vector []float32 `json:"vector"`

	// Payload is optional metadata to store with the vector
	Payload map[string]any `json:"payload,omitempty"`
}

// Collection contains metadata about a vector collection.
type Collection struct {
	// Name is the unique identifier of the collection
	Name string `json:"name"`

	// Status indicates the operational state (e.g., "Green", "Yellow")
	Status string `json:"status"`

	// VectorSize is the dimension of vectors in this collection
	VectorSize int `json:"vectorSize"`

	// Distance is the similarity metric (e.g., "Cosine", "Dot", "Euclid")
	Distance string `json:"distance"`

	// VectorCount is the number of indexed vectors
	VectorCount uint64 `json:"vectorCount"`

	// PointCount is the number of stored points/documents
	PointCount uint64 `json:"pointCount"`
}

// Document is a text to embed and store.
type Document struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Payload map[string]any `json:"payload,omitempty"`
}

// BuildPayload creates a payload with separated internal and user fields.
// Internal fields are stored at the top level, user fields under
// UserPayloadPrefix.
//
// Example:
//
//	payload := BuildPayload(
//	    map[string]any{"search_store_id": "store123"},
//	    map[string]any{"document_id": "doc456"},
//	)
//	// Result: {"search_store_id": "store123", "custom": {"document_id": "doc456"}}
func BuildPayload(internal map[string]any, user map[string]any) map[string]any {
	payload := make(map[string]any, len(internal)+1)
	for k, v := range internal {
		payload[k] = v
	}
	if len(user) > 0 {
		payload[UserPayloadPrefix] = user
	}
	return payload
}

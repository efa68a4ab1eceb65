package vectordb

import "errors"

var (
	ErrCollectionNotFound    = errors.New("[VectorDB] collection not found")
	ErrInvalidCollectionName = errors.New("[VectorDB] invalid collection name")

	// ErrDimensionMismatch is returned when a vector does not have the
	// size the collection was created with.
	ErrDimensionMismatch = errors.New("[VectorDB] vector dimension mismatch")

	ErrInvalidSearchRequest = errors.New("[VectorDB] invalid search request")
	ErrInvalidRecord        = errors.New("[VectorDB] invalid record")
	ErrInvalidFilter        = errors.New("[VectorDB] invalid filter")
)

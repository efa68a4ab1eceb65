package qdrant

import (
	"time"

	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// extractVectorDetails returns the vector size and distance metric of an
// unnamed-vector collection, or (0, "") when the collection uses named
// vectors or the info is incomplete.
func extractVectorDetails(info *qdrant.CollectionInfo) (int, string) {
	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	if params == nil {
		return 0, ""
	}
	return int(params.GetSize()), params.GetDistance().String()
}

// derefUint64 safely dereferences a *uint64 pointer.
func derefUint64(v *uint64) uint64 {
	if v != nil {
		return *v
	}
	return 0
}

// observeOperation notifies the observer about an operation if one is configured.
func (c *Client) observeOperation(operation, collection string, duration time.Duration, err error, size int64) {
	if c == nil || c.observer == nil {
		return
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component: "qdrant",
		Operation: operation,
		Resource:  collection,
		Duration:  duration,
		Error:     err,
		Size:      size,
	})
}

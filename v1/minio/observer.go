package minio

import (
	"time"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// track starts timing a media store operation on key in the configured
// bucket. The returned func reports it to the observer, if one is set.
func (m *MinioClient) track(operation, key string) func(err error, size int64, metadata map[string]interface{}) {
	start := time.Now()
	return func(err error, size int64, metadata map[string]interface{}) {
		if m == nil || m.observer == nil {
			return
		}
		m.observer.ObserveOperation(observability.OperationContext{
			Component:   "minio",
			Operation:   operation,
			Resource:    m.cfg.Connection.BucketName,
			SubResource: key,
			Duration:    time.Since(start),
			Error:       err,
			Size:        size,
			Metadata:    metadata,
		})
	}
}

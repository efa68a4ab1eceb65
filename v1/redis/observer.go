package redis

import (
	"time"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// track starts timing an operation on a session's key. The returned func
// reports it to the observer, if one is set; size counts messages.
func (r *RedisClient) track(operation, sessionID, key string) func(err error, size int64) {
	start := time.Now()
	return func(err error, size int64) {
		if r == nil || r.observer == nil {
			return
		}
		r.observer.ObserveOperation(observability.OperationContext{
			Component:   "redis",
			Operation:   operation,
			Resource:    sessionID,
			SubResource: key,
			Duration:    time.Since(start),
			Error:       err,
			Size:        size,
		})
	}
}

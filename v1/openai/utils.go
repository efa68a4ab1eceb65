package openai

import (
	"encoding/base64"
	"time"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// observeOperation notifies the observer about an operation if one is configured.
func (c *Client) observeOperation(operation, resource string, duration time.Duration, err error, size int64) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component: c.component,
		Operation: operation,
		Resource:  resource,
		Duration:  duration,
		Error:     err,
		Size:      size,
	})
}

func float32Ptr(v *float64) float32 {
	if v == nil {
		return 0
	}
	return float32(*v)
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

package rabbit

import (
	"time"

	"github.com/Aleph-Alpha/connectors/v1/observability"
)

// trackPublish starts timing a publish with routingKey. The returned func
// reports it, confirmed or failed, to the observer if one is set.
func (rb *RabbitClient) trackPublish(routingKey string) func(err error, size int64) {
	start := time.Now()
	return func(err error, size int64) {
		if rb.observer == nil {
			return
		}
		rb.observer.ObserveOperation(observability.OperationContext{
			Component:   "rabbit",
			Operation:   "produce",
			Resource:    rb.cfg.Channel.ExchangeName,
			SubResource: routingKey,
			Duration:    time.Since(start),
			Error:       err,
			Size:        size,
		})
	}
}

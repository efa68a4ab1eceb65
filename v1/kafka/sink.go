package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Aleph-Alpha/connectors/v1/events"
	"github.com/Aleph-Alpha/connectors/v1/observability"
	"github.com/Aleph-Alpha/connectors/v1/tracer"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink publishes invocation events to a Kafka topic. The message key is the
// event's call id, so all events of one call land on the same partition.
//
// Sink implements events.Sink.
type Sink struct {
	cfg Config

	// writer is the Kafka writer used for publishing messages
	writer messageWriter

	logger Logger

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// mu protects closed
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ events.Sink = (*Sink)(nil)

// Publish writes event as JSON. The trace context of ctx travels in the
// message headers. In async mode it returns once the message
// is queued.
func (s *Sink) Publish(ctx context.Context, event events.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	start := time.Now()
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.Time,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "event-id", Value: []byte(event.ID)},
		},
	}
	for k, v := range tracer.Carrier(ctx) {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	err = s.writer.WriteMessages(ctx, msg)
	if err != nil {
		err = fmt.Errorf("failed to write event to %s: %w", s.cfg.Topic, err)
	}
	s.observeOperation("publish", s.cfg.Topic, string(event.Type), time.Since(start), err, int64(len(value)))
	return err
}

// Close flushes pending messages and closes the writer. It is safe to call
// more than once.
func (s *Sink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		err = s.writer.Close()
		if s.logger != nil {
			if err != nil {
				s.logger.Warn("failed to close kafka writer", err)
			} else {
				s.logger.Info("kafka event sink closed", nil)
			}
		}
	})
	return err
}

// WithObserver attaches an observer that is notified of every publish.
func (s *Sink) WithObserver(observer observability.Observer) *Sink {
	s.observer = observer
	return s
}

func (s *Sink) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "kafka",
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
	})
}

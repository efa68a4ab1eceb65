package kafka

import "errors"

var (
	// ErrInvalidConfig is returned by NewSink for an unusable configuration.
	ErrInvalidConfig = errors.New("[Kafka] invalid configuration")

	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("[Kafka] sink is closed")
)

package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// Common Redis errors
var (
	// ErrClosed is returned when the client is closed.
	ErrClosed = errors.New("[Redis] client is closed")

	// ErrInvalidConfig is returned by Validate.
	ErrInvalidConfig = errors.New("[Redis] invalid config")

	// ErrCorruptHistory is returned when a stored message cannot be decoded.
	ErrCorruptHistory = errors.New("[Redis] corrupt chat history entry")
)

// IsNilError checks if the error is a "key does not exist" error.
func IsNilError(err error) bool {
	return errors.Is(err, redis.Nil)
}

// IsClosedError checks if the error is a "client is closed" error.
func IsClosedError(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, redis.ErrClosed)
}

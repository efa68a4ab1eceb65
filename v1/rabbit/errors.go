package rabbit

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Errors returned by the client and the sink. TranslateError maps AMQP and
// network failures onto them.
var (
	// ErrInvalidConfig is returned by NewClient for an unusable configuration
	ErrInvalidConfig = errors.New("[Rabbit] invalid configuration")

	// ErrConnectionFailed is returned when connection to RabbitMQ cannot be established
	ErrConnectionFailed = errors.New("[Rabbit] connection failed")

	// ErrConnectionLost is returned when connection to RabbitMQ is lost
	ErrConnectionLost = errors.New("[Rabbit] connection lost")

	// ErrConnectionClosed is returned when connection is closed
	ErrConnectionClosed = errors.New("[Rabbit] connection closed")

	// ErrChannelError is returned for channel-related errors
	ErrChannelError = errors.New("[Rabbit] channel error")

	// ErrAccessDenied is returned when access is denied to a resource
	ErrAccessDenied = errors.New("[Rabbit] access denied")

	// ErrExchangeNotFound is returned when the exchange doesn't exist
	ErrExchangeNotFound = errors.New("[Rabbit] exchange not found")

	// ErrPreconditionFailed is returned when an exchange exists with other properties
	ErrPreconditionFailed = errors.New("[Rabbit] precondition failed")

	// ErrMessageTooLarge is returned when message exceeds size limits
	ErrMessageTooLarge = errors.New("[Rabbit] message too large")

	// ErrMessageNacked is returned when the broker negatively acknowledged a publish
	ErrMessageNacked = errors.New("[Rabbit] message nacked")

	// ErrNotAllowed is returned when operation is not allowed
	ErrNotAllowed = errors.New("[Rabbit] not allowed")

	// ErrServerError is returned for broker side failures
	ErrServerError = errors.New("[Rabbit] server error")

	// ErrProtocolError is returned for frame and syntax errors in the AMQP protocol
	ErrProtocolError = errors.New("[Rabbit] protocol error")

	// ErrTimeout is returned when operation times out
	ErrTimeout = errors.New("[Rabbit] timeout")

	// ErrNetworkError is returned for network-related errors
	ErrNetworkError = errors.New("[Rabbit] network error")

	// ErrShutdown is returned after GracefulShutdown
	ErrShutdown = errors.New("[Rabbit] client is shut down")
)

// TranslateError converts AMQP/RabbitMQ-specific errors into the errors
// above, wrapping the original. Unknown errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	// amqp.ErrClosed is an *amqp.Error itself, so it is checked first.
	if errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		if translated := translateAMQPError(amqpErr); translated != nil {
			return fmt.Errorf("%w: %v", translated, err)
		}
		return err
	}

	// syscall.Errno implements net.Error as well.
	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		return fmt.Errorf("%w: %v", translateSyscallError(syscallErr), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	return err
}

// translateAMQPError maps AMQP reply codes to the package errors
func translateAMQPError(amqpErr *amqp.Error) error {
	switch amqpErr.Code {
	// Connection-level errors
	case amqp.ConnectionForced:
		return ErrConnectionClosed
	case amqp.AccessRefused:
		return ErrAccessDenied
	case amqp.NotFound:
		return ErrExchangeNotFound
	case amqp.PreconditionFailed:
		return ErrPreconditionFailed

	// Channel-level errors
	case amqp.ContentTooLarge:
		return ErrMessageTooLarge
	case amqp.ChannelError:
		return ErrChannelError
	case amqp.NotAllowed:
		return ErrNotAllowed
	case amqp.InternalError, amqp.ResourceError, amqp.NotImplemented:
		return ErrServerError

	// Frame-level errors
	case amqp.SyntaxError, amqp.CommandInvalid, amqp.FrameError, amqp.UnexpectedFrame:
		return ErrProtocolError
	}
	return nil
}

// translateSyscallError maps syscall errors to the package errors
func translateSyscallError(syscallErr syscall.Errno) error {
	switch syscallErr {
	case syscall.ECONNREFUSED:
		return ErrConnectionFailed
	case syscall.ECONNRESET, syscall.ECONNABORTED, syscall.EPIPE, syscall.ENOTCONN:
		return ErrConnectionLost
	case syscall.ETIMEDOUT:
		return ErrTimeout
	case syscall.EACCES, syscall.EPERM:
		return ErrAccessDenied
	default:
		return ErrNetworkError
	}
}

// IsRetryableError returns true if publishing again after a reconnect may succeed.
func IsRetryableError(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrConnectionLost),
		errors.Is(err, ErrConnectionClosed),
		errors.Is(err, ErrChannelError),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrNetworkError),
		errors.Is(err, ErrServerError),
		errors.Is(err, ErrMessageNacked):
		return true
	default:
		return false
	}
}

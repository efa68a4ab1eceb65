package ai

import "errors"

var (
	// ErrInvalidExecutionSettings is returned when the settings cannot be
	// honoured, e.g. auto-invoke without a kernel or with several choices.
	ErrInvalidExecutionSettings = errors.New("[AI] invalid execution settings")

	// ErrServiceRetryable marks provider errors worth retrying: rate limits,
	// timeouts, 5xx responses.
	ErrServiceRetryable = errors.New("[AI] service temporarily unavailable")

	// ErrInvalidRequest marks requests the provider rejected as malformed.
	ErrInvalidRequest = errors.New("[AI] invalid request")

	// ErrContentFiltered marks responses blocked by the provider's content filter.
	ErrContentFiltered = errors.New("[AI] content filtered")

	// ErrAuthentication marks rejected credentials.
	ErrAuthentication = errors.New("[AI] authentication failed")

	ErrEmptyResponse  = errors.New("[AI] model returned no choices")
	ErrNoChatService  = errors.New("[AI] no chat completion service available")
	ErrInvalidPrompt  = errors.New("[AI] invalid prompt template")
	ErrNotImplemented = errors.New("[AI] operation not supported by this service")
)

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceRetryable)
}

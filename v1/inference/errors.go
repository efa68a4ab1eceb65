package inference

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Aleph-Alpha/connectors/v1/ai"
)

var (
	ErrInvalidConfig = errors.New("[Inference] invalid config")
	ErrNoTexts       = errors.New("[Inference] no texts provided")
	ErrNoModel       = errors.New("[Inference] model is required")

	// ErrUnexpectedResponse is returned when the response does not match the
	// request, e.g. fewer embeddings than inputs.
	ErrUnexpectedResponse = errors.New("[Inference] unexpected response")
)

// statusError maps an HTTP status to the ai error kinds.
func statusError(status int, url string) error {
	var kind error
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= 500:
		kind = ai.ErrServiceRetryable
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		kind = ai.ErrAuthentication
	default:
		kind = ai.ErrInvalidRequest
	}
	return fmt.Errorf("[Inference] %w: http %d for %s", kind, status, url)
}

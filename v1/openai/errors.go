package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Aleph-Alpha/connectors/v1/ai"
)

var (
	ErrInvalidConfig = errors.New("[OpenAI] invalid config")
	ErrEmptyResponse = errors.New("[OpenAI] empty response")
)

// classifyError maps go-openai errors onto the ai error kinds. The
// original error stays in the chain.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		if fmt.Sprint(apiErr.Code) == "content_filter" {
			return fmt.Errorf("[OpenAI] %w: %w", ai.ErrContentFiltered, err)
		}
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("[OpenAI] request failed: %w", err)
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return fmt.Errorf("[OpenAI] %w: %w", ai.ErrServiceRetryable, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("[OpenAI] %w: %w", ai.ErrAuthentication, err)
	case status >= http.StatusBadRequest:
		return fmt.Errorf("[OpenAI] %w: %w", ai.ErrInvalidRequest, err)
	}
	return fmt.Errorf("[OpenAI] request failed: %w", err)
}

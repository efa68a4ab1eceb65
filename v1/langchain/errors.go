package langchain

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerateFailed wraps failures of the underlying langchaingo model.
	ErrGenerateFailed = errors.New("[LangChain] content generation failed")

	ErrEmbedFailed     = errors.New("[LangChain] embedding failed")
	ErrEmptyResponse   = errors.New("[LangChain] model returned no choices")
	ErrUnsupportedRole = errors.New("[LangChain] unsupported message role")
)

func wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

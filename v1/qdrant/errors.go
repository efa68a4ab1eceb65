package qdrant

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

var (
	ErrNotInitialized   = errors.New("[Qdrant] client not initialized")
	ErrInvalidPointID   = errors.New("[Qdrant] invalid point id")
	ErrUnsupportedValue = errors.New("[Qdrant] unsupported filter value")
)

// classify maps gRPC failures onto the vectordb sentinels so callers can
// use errors.Is regardless of the backing store.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		switch {
		case st.Code() == codes.NotFound:
			return fmt.Errorf("[Qdrant] %s: %w: %s", op, vectordb.ErrCollectionNotFound, st.Message())
		case st.Code() == codes.InvalidArgument && strings.Contains(strings.ToLower(st.Message()), "dimension"):
			return fmt.Errorf("[Qdrant] %s: %w: %s", op, vectordb.ErrDimensionMismatch, st.Message())
		}
	}
	return fmt.Errorf("[Qdrant] %s failed: %w", op, err)
}

package minio

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
)

var (
	ErrInvalidConfig     = errors.New("[MinIO] invalid config")
	ErrConnectionFailed  = errors.New("[MinIO] connection failed")
	ErrBucketNotFound    = errors.New("[MinIO] bucket not found")
	ErrObjectNotFound    = errors.New("[MinIO] object not found")
	ErrAccessDenied      = errors.New("[MinIO] access denied")
	ErrInvalidObjectName = errors.New("[MinIO] invalid object name")
)

// TranslateError maps S3 error responses to the package sentinels. The
// original error stays in the chain.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrBucketNotFound, err)
	case "NoSuchKey":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	case "XMinioInvalidObjectName", "InvalidObjectName":
		return fmt.Errorf("%w: %w", ErrInvalidObjectName, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}
	return err
}

// IsRetryableError reports throttling and server side failures.
func IsRetryableError(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "SlowDown", "ServiceUnavailable", "InternalError", "RequestTimeout":
		return true
	}
	return resp.StatusCode >= 500
}

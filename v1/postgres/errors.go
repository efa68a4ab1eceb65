package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Aleph-Alpha/connectors/v1/vectordb"
)

// Common database error types that can be used by consumers of this package.
// These provide a standardized set of errors that abstract away the
// underlying database-specific error details.
var (
	// ErrRecordNotFound is returned when a query doesn't find any matching records
	ErrRecordNotFound = errors.New("[Postgres] record not found")

	// ErrDuplicateKey is returned when an insert or update violates a unique constraint
	ErrDuplicateKey = errors.New("[Postgres] duplicate key violation")

	// ErrForeignKey is returned when an operation violates a foreign key constraint
	ErrForeignKey = errors.New("[Postgres] foreign key violation")

	// ErrInvalidData is returned when the data being saved doesn't meet validation rules
	ErrInvalidData = errors.New("[Postgres] invalid data")

	ErrInvalidConfig = errors.New("[Postgres] invalid config")

	// ErrTemporary marks failures worth retrying: serialization failures,
	// deadlocks, lost connections, admin shutdowns.
	ErrTemporary = errors.New("[Postgres] temporary failure")
)

// SQLSTATE codes this package reacts to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeNotNullViolation     = "23502"
	codeCheckViolation       = "23514"
	codeDataException        = "22000"
	codeInvalidText          = "22P02"
	codeUndefinedTable       = "42P01"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	codeTooManyConnections   = "53300"
)

// TranslateError converts GORM and driver errors into the sentinels above
// and, for vector tables, into the vectordb sentinels. The original error
// stays in the chain. Unknown errors are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", ErrRecordNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	case errors.Is(err, gorm.ErrInvalidData):
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	case codeNotNullViolation, codeCheckViolation, codeInvalidText:
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	case codeUndefinedTable:
		return fmt.Errorf("%w: %w", vectordb.ErrCollectionNotFound, err)
	case codeDataException:
		if strings.Contains(pgErr.Message, "dimensions") {
			return fmt.Errorf("%w: %w", vectordb.ErrDimensionMismatch, err)
		}
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	case codeSerializationFailure, codeDeadlockDetected, codeAdminShutdown, codeTooManyConnections:
		return fmt.Errorf("%w: %w", ErrTemporary, err)
	}
	if strings.HasPrefix(pgErr.Code, "08") {
		return fmt.Errorf("%w: %w", ErrTemporary, err)
	}
	return err
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(TranslateError(err), ErrTemporary)
}

package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/ledgerbank/internal/apperrors"
)

// Transient errors: the same statement may succeed if the whole transaction is retried
var retryableCodes = map[string]struct{}{
	pgerrcode.SerializationFailure: {},
	pgerrcode.DeadlockDetected:     {},
	pgerrcode.LockNotAvailable:     {},
}

// Wrap database error, marking transient ones with apperrors.ErrRetryable
// nil stays nil
func dbError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := retryableCodes[pgErr.Code]; ok {
			return fmt.Errorf("db error: %w: %w", apperrors.ErrRetryable, err)
		}
		if pgErr.Code == pgerrcode.CheckViolation {
			return fmt.Errorf("db constraint %s violated: %w: %w", pgErr.ConstraintName, apperrors.ErrInvalidArgument, err)
		}
	}

	return fmt.Errorf("db error: %w", err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

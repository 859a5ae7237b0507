package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SQLSTATE codes raised by Postgres integrity constraints.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var (
	// ErrUniqueViolation marks a write rejected by a primary key or unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
	// ErrForeignKeyViolation marks a write rejected by a foreign key.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// Classify rewraps Postgres integrity errors so callers can match them with
// errors.Is. Other errors are returned unchanged.
func Classify(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%w (%s): %w", ErrUniqueViolation, pqErr.Constraint, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%w (%s): %w", ErrForeignKeyViolation, pqErr.Constraint, err)
	default:
		return err
	}
}

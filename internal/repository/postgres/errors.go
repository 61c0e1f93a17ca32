package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgInvalidTextRepresent = "22P02"
	pgUndefinedTable       = "42P01"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgInvalidInputError checks if a parameter failed to parse, e.g. a malformed UUID
func IsPgInvalidInputError(err error) bool {
	return pgErrorCode(err) == pgInvalidTextRepresent
}

// IsPgUndefinedTableError checks if the schema has not been created
func IsPgUndefinedTableError(err error) bool {
	return pgErrorCode(err) == pgUndefinedTable
}

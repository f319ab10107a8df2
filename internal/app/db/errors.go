package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes the store reacts to.
const (
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

func hasPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// IsForeignKeyViolation checks if the error references a missing row (code 23503).
func IsForeignKeyViolation(err error) bool {
	return hasPgCode(err, pgForeignKeyViolation)
}

// IsInvalidInput checks if a parameter could not be parsed by the server, e.g. a malformed UUID (code 22P02).
func IsInvalidInput(err error) bool {
	return hasPgCode(err, pgInvalidTextRepr)
}

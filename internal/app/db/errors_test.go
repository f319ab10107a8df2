package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/ahmadjilani1/chathub/internal/app/chat"
)

func TestPgErrorClassification(t *testing.T) {
	req := require.New(t)

	fk := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"})
	invalid := &pgconn.PgError{Code: "22P02"}
	unique := &pgconn.PgError{Code: "23505"}

	req.True(IsForeignKeyViolation(fk))
	req.False(IsForeignKeyViolation(invalid))
	req.True(IsInvalidInput(invalid))
	req.False(IsInvalidInput(errors.New("plain")))

	req.ErrorIs(notFound(pgx.ErrNoRows), chat.ErrNotFound)
	req.ErrorIs(notFound(invalid), chat.ErrNotFound)

	// Other server errors pass through untouched
	req.Same(unique, notFound(unique))
}

package jobstore

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestPgErrorClassification(t *testing.T) {
	badUUID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "nope"`}
	duplicate := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}

	assert.True(t, isInvalidUUID(badUUID))
	assert.True(t, isInvalidUUID(fmt.Errorf("findByID: %w", badUUID)))
	assert.False(t, isInvalidUUID(duplicate))
	assert.False(t, isInvalidUUID(pgx.ErrNoRows))
	assert.False(t, isInvalidUUID(nil))

	assert.True(t, isUniqueViolation(duplicate))
	assert.False(t, isUniqueViolation(badUUID))
}

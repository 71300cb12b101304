package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestKindPredicates(t *testing.T) {
	v := Validation("quantity", "must be positive")
	nf := NotFound("assembly")
	cf := Conflict("concurrent approval", errors.New("boom"))

	assert.True(t, IsValidation(v))
	assert.False(t, IsValidation(nf))
	assert.True(t, IsNotFound(nf))
	assert.True(t, IsConflict(cf))

	// Predicates see through wrapping.
	wrapped := fmt.Errorf("saving bom: %w", cf)
	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsConflict(errors.New("plain")))
}

func TestErrorMessageIncludesField(t *testing.T) {
	assert.Equal(t, "quantity: must be positive", Validation("quantity", "must be positive").Error())
	assert.Equal(t, "assembly not found", NotFound("assembly").Error())
}

func TestFromConstraint(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "idx_bom_assembly_version"}
	exclusion := &pgconn.PgError{Code: "23P01", ConstraintName: "boms_no_overlap_governing"}
	other := &pgconn.PgError{Code: "23503"}

	assert.True(t, IsConflict(FromConstraint(unique, "concurrent create")))
	got := FromConstraint(exclusion, "concurrent approval")
	assert.True(t, IsConflict(got))
	assert.Contains(t, got.Error(), "boms_no_overlap_governing")

	// Foreign-key and arbitrary errors pass through unchanged.
	assert.Equal(t, error(other), FromConstraint(other, "x"))
	plain := errors.New("connection reset")
	assert.Equal(t, plain, FromConstraint(plain, "x"))
	assert.Nil(t, FromConstraint(nil, "x"))
}

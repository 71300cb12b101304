// Package apperror defines the error taxonomy shared by services and
// handlers. Services return these typed errors; handlers translate them to
// HTTP status codes without leaking storage internals.
package apperror

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Kind discriminates error categories for transport mapping and retry policy.
type Kind int

const (
	// KindValidation marks caller-correctable failures: bad date range,
	// overlapping governing BOM, ineligible component, duplicate line.
	KindValidation Kind = iota
	// KindNotFound marks a missing referenced entity.
	KindNotFound
	// KindConflict marks a storage-level uniqueness/exclusion violation
	// raised despite the application pre-check. The whole operation can be
	// retried (re-fetch, re-validate, re-attempt).
	KindConflict
)

// Error carries the category, the offending field/entity and a human-readable
// message sufficient to resolve the failure without reading server logs.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

// Validation builds a caller-correctable validation error for a field.
func Validation(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a missing-entity error.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// NotFoundWrap builds a missing-entity error preserving the storage cause.
func NotFoundWrap(entity string, err error) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found", err: err}
}

// Conflict builds a retryable concurrency error preserving the storage cause.
func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, err: err}
}

// IsValidation reports whether err is (or wraps) a validation error.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsNotFound reports whether err is (or wraps) a not-found error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsConflict reports whether err is (or wraps) a concurrency conflict.
func IsConflict(err error) bool { return hasKind(err, KindConflict) }

func hasKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// Postgres error codes the defense-in-depth constraints raise under races.
const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

// FromConstraint maps unique/exclusion violations to a Conflict error so
// calling layers can retry instead of treating the race as a permanent
// validation failure. Other errors pass through unchanged.
func FromConstraint(err error, message string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgExclusionViolation:
			return Conflict(message+" (constraint "+pgErr.ConstraintName+")", err)
		}
	}
	return err
}

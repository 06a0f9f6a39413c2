// Package apperrors defines the error taxonomy shared across the insight pipeline.
// Every failure is scoped to a single request; nothing here is fatal to the process.
package apperrors

import "errors"

var (
	// ErrInvalidInput indicates an empty or malformed question. Recovered
	// locally and surfaced as a user-facing 4xx-equivalent.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeneratorTimeout indicates the query generator exceeded its time
	// budget. Not retried automatically; the caller may resubmit.
	ErrGeneratorTimeout = errors.New("query generator timed out")

	// ErrGeneratorFailure indicates the query generator failed for a reason
	// other than timeout.
	ErrGeneratorFailure = errors.New("query generator failed")

	// ErrValidationRejected indicates the sanitizer rejected the generated
	// statement. The rejection reason category travels with the error; the
	// offending SQL never does.
	ErrValidationRejected = errors.New("generated query rejected")

	// ErrExecutionTimeout indicates the statement was cancelled after the
	// execution deadline. The caller may retry; the engine does not.
	ErrExecutionTimeout = errors.New("query execution timed out")

	// ErrExecutionFailure indicates a store-level failure the sanitizer's
	// lexical checks could not anticipate. Surfaced generically, logged with
	// the validated statement for diagnosis.
	ErrExecutionFailure = errors.New("query execution failed")
)

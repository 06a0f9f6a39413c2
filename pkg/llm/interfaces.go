// Package llm holds the query-generator clients. The generator is an external
// collaborator: it returns one best-effort SQL statement as untrusted text
// that the sanitizer must contain. Nothing here is trusted downstream.
package llm

import "context"

// QueryGenerator produces one candidate SQL statement for a generation
// request. Implementations must honor context cancellation and bound the call
// with their configured timeout. Only the first candidate is ever used.
type QueryGenerator interface {
	GenerateQuery(ctx context.Context, system, prompt string) (string, error)

	// Model returns the configured model name, for logging.
	Model() string
}

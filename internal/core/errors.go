package core

import "errors"

// Error kinds distinguished at the service boundary. Deterministic stages
// degrade to the empty-candidate path instead of returning errors; only
// these surface to the caller.
var (
	// ErrValidation marks an empty or malformed query. No LLM call is
	// made; the caller should ask the user to rephrase.
	ErrValidation = errors.New("invalid query")

	// ErrUpstream marks a failed, timed-out, or malformed LLM response.
	// The request is retryable.
	ErrUpstream = errors.New("upstream LLM failure")

	// ErrInternalConsistency marks a pipeline stage referencing a record
	// that does not exist in the corpus snapshot. Fatal for the request.
	ErrInternalConsistency = errors.New("internal consistency failure")
)

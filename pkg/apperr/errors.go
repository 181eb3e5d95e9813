// Package apperr defines the error taxonomy shared across the retrieval,
// agent, router, and pipeline packages so callers can classify failures
// with errors.Is instead of string matching.
package apperr

import "errors"

var (
	// ErrQueryInvalid means the query failed basic validation (e.g. empty).
	ErrQueryInvalid = errors.New("query invalid")
	// ErrQueryTooLong is reserved for callers that want to reject rather
	// than truncate an over-long query; the pipeline truncates instead
	// of raising this by default.
	ErrQueryTooLong = errors.New("query too long")
	// ErrRetrievalUnavailable means the vector store or embedding
	// service could not be reached.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrLLMUnavailable means the LLM provider could not be reached or
	// failed during generation.
	ErrLLMUnavailable = errors.New("llm unavailable")
	// ErrAgentFailure means an agent's Run/RunStream failed for a reason
	// other than retrieval or LLM unavailability (e.g. a panic recovered
	// at the coordinator boundary).
	ErrAgentFailure = errors.New("agent failure")
	// ErrSessionWriteFailure means appending to the session store failed.
	// This is always logged and never surfaced to the HTTP caller.
	ErrSessionWriteFailure = errors.New("session write failure")
)

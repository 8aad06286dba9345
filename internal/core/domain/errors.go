package domain

import "errors"

// Error taxonomy. Only ErrCatalogUnavailable and ErrCompletionUnavailable ever
// propagate out of the engine; the tool-side errors are converted into failed
// observation strings so the model can see and correct its own mistakes.
var (
	// ErrCatalogUnavailable: the tool provider could not be reached or
	// returned a malformed listing. Fatal at engine construction.
	ErrCatalogUnavailable = errors.New("tool catalog unavailable")

	// ErrUnknownTool: the requested tool is not in the catalog.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMissingParameter: a required parameter was absent from the call.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrTypeMismatch: a supplied parameter does not match its declared kind.
	ErrTypeMismatch = errors.New("parameter type mismatch")

	// ErrToolTimeout: the tool call timed out after retry exhaustion.
	ErrToolTimeout = errors.New("tool call timed out")

	// ErrCompletionUnavailable: the completion provider failed after the
	// retry budget. Ends the run as failed; reasoning cannot proceed.
	ErrCompletionUnavailable = errors.New("completion provider unavailable")
)

package ports

import (
	"context"

	"github.com/varekai/opsmind/internal/core/domain"
)

// ToolListing is one tool as described by the provider's wire listing. The
// input schema arrives as a JSON-Schema-shaped document; the catalog service
// converts it into a typed domain.ToolSchema.
type ToolListing struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolTransport abstracts the remote tool provider (an RPC-style
// list-tools / call-tool protocol).
type ToolTransport interface {
	// ListTools fetches the provider's tool listing.
	ListTools(ctx context.Context) ([]ToolListing, error)

	// CallTool invokes one tool. Transport errors and isError results are
	// both surfaced: the invoker decides how each becomes an observation.
	CallTool(ctx context.Context, name string, args map[string]any) (domain.ToolCallResult, error)
}

// Repository abstracts the persistent storage (DuckDB).
type Repository interface {
	// Task results
	SaveTaskResult(ctx context.Context, result domain.TaskResult) error
	GetTaskResult(ctx context.Context, taskName string) (domain.TaskResult, error)
	ListTaskResults(ctx context.Context, limit int) ([]domain.TaskResult, error)

	// Traces
	SaveTrace(ctx context.Context, trace *domain.Trace) error
	GetTrace(ctx context.Context, id domain.TraceID) (*domain.Trace, error)
	ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error)
}

package domain

import "time"

// TraceID uniquely identifies a trace (one per task or reasoning run).
type TraceID string

// SpanID uniquely identifies a span within a trace.
type SpanID string

// SpanKind classifies the type of operation a span represents.
type SpanKind string

const (
	SpanKindTask  SpanKind = "task"  // one plan/execute/evaluate/refine task
	SpanKindAgent SpanKind = "agent" // one ReAct reasoning run
	SpanKindLLM   SpanKind = "llm"   // completion call
	SpanKindTool  SpanKind = "tool"  // tool invocation
)

// SpanStatus indicates completion state of a span.
type SpanStatus string

const (
	SpanStatusRunning   SpanStatus = "running"
	SpanStatusOK        SpanStatus = "ok"
	SpanStatusError     SpanStatus = "error"
	SpanStatusCancelled SpanStatus = "cancelled"
)

// Span represents a single unit of work within a trace.
// Spans form a tree: a task span contains agent spans, which contain
// llm and tool child spans.
type Span struct {
	ID         SpanID            `json:"id"`
	ParentID   SpanID            `json:"parent_id,omitempty"` // empty = root
	TraceID    TraceID           `json:"trace_id"`
	Name       string            `json:"name"` // e.g. "llm.complete (step 3)", "tool.get_metrics"
	Kind       SpanKind          `json:"kind"`
	Status     SpanStatus        `json:"status"`
	Input      string            `json:"input,omitempty"`  // truncated input
	Output     string            `json:"output,omitempty"` // truncated output
	Error      string            `json:"error,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    *time.Time        `json:"end_time,omitempty"`
	DurationMs int64             `json:"duration_ms,omitempty"`
	Children   []SpanID          `json:"children,omitempty"`
}

// Trace groups all spans of a single operation (task or reasoning run).
type Trace struct {
	ID         TraceID    `json:"id"`
	RootSpanID SpanID     `json:"root_span_id"`
	Name       string     `json:"name"` // e.g. "task: list-available-nodes"
	Status     SpanStatus `json:"status"`
	TaskName   string     `json:"task_name,omitempty"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	SpanCount  int        `json:"span_count"`
	Spans      []Span     `json:"spans,omitempty"` // populated only on detail view
}

// TraceSummary is a lightweight view for listing traces.
type TraceSummary struct {
	ID         TraceID    `json:"id"`
	Name       string     `json:"name"`
	Status     SpanStatus `json:"status"`
	StartTime  time.Time  `json:"start_time"`
	DurationMs int64      `json:"duration_ms"`
	SpanCount  int        `json:"span_count"`
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/varekai/opsmind/internal/core/domain"
)

const (
	maxTraces      = 500  // ring buffer size
	maxInputOutput = 2000 // truncate span input/output at 2KB
)

// TraceRepository is the minimal persistence interface needed by the collector.
type TraceRepository interface {
	SaveTrace(ctx context.Context, trace *domain.Trace) error
}

// TraceCollector gathers and exposes traces and spans for tasks, reasoning
// runs, completion calls, and tool calls. Thread-safe; operates as a ring
// buffer of recent traces, optionally persisting completed traces.
type TraceCollector struct {
	mu     sync.RWMutex
	logger *slog.Logger
	repo   TraceRepository // optional; nil disables persistence

	traces     map[domain.TraceID]*domain.Trace
	spans      map[domain.SpanID]*domain.Span
	traceOrder []domain.TraceID // for eviction
}

// NewTraceCollector creates a collector. repo may be nil.
func NewTraceCollector(logger *slog.Logger, repo TraceRepository) *TraceCollector {
	return &TraceCollector{
		logger: logger,
		repo:   repo,
		traces: make(map[domain.TraceID]*domain.Trace, maxTraces),
		spans:  make(map[domain.SpanID]*domain.Span, maxTraces*10),
	}
}

// --- Context propagation ---

type traceCtxKey struct{}
type spanCtxKey struct{}

// ContextWithTrace stores trace and span IDs in context for propagation.
func ContextWithTrace(ctx context.Context, traceID domain.TraceID, spanID domain.SpanID) context.Context {
	ctx = context.WithValue(ctx, traceCtxKey{}, traceID)
	ctx = context.WithValue(ctx, spanCtxKey{}, spanID)
	return ctx
}

// TraceFromContext extracts trace and current span ID from context.
func TraceFromContext(ctx context.Context) (domain.TraceID, domain.SpanID, bool) {
	traceID, ok1 := ctx.Value(traceCtxKey{}).(domain.TraceID)
	spanID, ok2 := ctx.Value(spanCtxKey{}).(domain.SpanID)
	return traceID, spanID, ok1 && ok2
}

// --- Trace lifecycle ---

// StartTrace begins a new trace. Returns updated context with trace/span.
func (tc *TraceCollector) StartTrace(ctx context.Context, name string, attrs map[string]string) (context.Context, domain.TraceID, domain.SpanID) {
	traceID := domain.TraceID(uuid.New().String())
	rootSpanID := domain.SpanID(uuid.New().String())
	now := time.Now()

	rootSpan := &domain.Span{
		ID:         rootSpanID,
		TraceID:    traceID,
		Name:       name,
		Kind:       domain.SpanKindTask,
		Status:     domain.SpanStatusRunning,
		Attributes: attrs,
		StartTime:  now,
	}

	trace := &domain.Trace{
		ID:         traceID,
		RootSpanID: rootSpanID,
		Name:       name,
		Status:     domain.SpanStatusRunning,
		StartTime:  now,
		SpanCount:  1,
	}

	tc.mu.Lock()
	tc.evictIfNeeded()
	tc.traces[traceID] = trace
	tc.spans[rootSpanID] = rootSpan
	tc.traceOrder = append(tc.traceOrder, traceID)
	tc.mu.Unlock()

	tc.logger.Debug("trace started", "trace_id", string(traceID), "name", name)

	return ContextWithTrace(ctx, traceID, rootSpanID), traceID, rootSpanID
}

// SetTraceTask associates a task name with the trace.
func (tc *TraceCollector) SetTraceTask(traceID domain.TraceID, taskName string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if trace, ok := tc.traces[traceID]; ok {
		trace.TaskName = taskName
	}
}

// EndTrace finalizes a trace and persists it when a repository is configured.
func (tc *TraceCollector) EndTrace(traceID domain.TraceID, status domain.SpanStatus, errMsg string) {
	tc.mu.Lock()

	trace, ok := tc.traces[traceID]
	if !ok {
		tc.mu.Unlock()
		return
	}

	now := time.Now()
	trace.Status = status
	trace.EndTime = &now
	trace.DurationMs = now.Sub(trace.StartTime).Milliseconds()

	if root, ok := tc.spans[trace.RootSpanID]; ok {
		root.Status = status
		root.EndTime = &now
		root.DurationMs = now.Sub(root.StartTime).Milliseconds()
		if errMsg != "" {
			root.Error = errMsg
		}
	}

	// Copy for persistence while the lock still guards span iteration.
	var persistCopy *domain.Trace
	if tc.repo != nil {
		cp := *trace
		for _, span := range tc.spans {
			if span.TraceID == traceID {
				cp.Spans = append(cp.Spans, *span)
			}
		}
		persistCopy = &cp
	}

	tc.mu.Unlock()

	// Persist asynchronously to avoid blocking the run driver.
	if persistCopy != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tc.repo.SaveTrace(ctx, persistCopy); err != nil {
				tc.logger.Warn("failed to persist trace", "trace_id", traceID, "error", err)
			}
		}()
	}
}

// --- Span lifecycle ---

// StartSpan creates a child span under the current context's span.
func (tc *TraceCollector) StartSpan(ctx context.Context, name string, kind domain.SpanKind, attrs map[string]string) (context.Context, domain.SpanID) {
	traceID, parentSpanID, ok := TraceFromContext(ctx)
	if !ok {
		// No trace in context: a no-op span.
		return ctx, ""
	}

	spanID := domain.SpanID(uuid.New().String())
	now := time.Now()

	span := &domain.Span{
		ID:         spanID,
		ParentID:   parentSpanID,
		TraceID:    traceID,
		Name:       name,
		Kind:       kind,
		Status:     domain.SpanStatusRunning,
		Attributes: attrs,
		StartTime:  now,
	}

	tc.mu.Lock()
	tc.spans[spanID] = span
	if parent, ok := tc.spans[parentSpanID]; ok {
		parent.Children = append(parent.Children, spanID)
	}
	if trace, ok := tc.traces[traceID]; ok {
		trace.SpanCount++
	}
	tc.mu.Unlock()

	return ContextWithTrace(ctx, traceID, spanID), spanID
}

// EndSpan finalizes a span with output and status.
func (tc *TraceCollector) EndSpan(spanID domain.SpanID, status domain.SpanStatus, output string, errMsg string) {
	if spanID == "" {
		return
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	span, ok := tc.spans[spanID]
	if !ok {
		return
	}

	now := time.Now()
	span.Status = status
	span.Output = truncate(output, maxInputOutput)
	span.EndTime = &now
	span.DurationMs = now.Sub(span.StartTime).Milliseconds()
	if errMsg != "" {
		span.Error = errMsg
	}
}

// SetSpanInput sets the input for a span.
func (tc *TraceCollector) SetSpanInput(spanID domain.SpanID, input string) {
	if spanID == "" {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if span, ok := tc.spans[spanID]; ok {
		span.Input = truncate(input, maxInputOutput)
	}
}

// --- Query ---

// ListTraces returns summaries of recent traces (newest first).
func (tc *TraceCollector) ListTraces(limit int) []domain.TraceSummary {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	if limit <= 0 || limit > len(tc.traceOrder) {
		limit = len(tc.traceOrder)
	}

	result := make([]domain.TraceSummary, 0, limit)
	for i := len(tc.traceOrder) - 1; i >= 0 && len(result) < limit; i-- {
		tid := tc.traceOrder[i]
		if trace, ok := tc.traces[tid]; ok {
			result = append(result, domain.TraceSummary{
				ID:         trace.ID,
				Name:       trace.Name,
				Status:     trace.Status,
				StartTime:  trace.StartTime,
				DurationMs: trace.DurationMs,
				SpanCount:  trace.SpanCount,
			})
		}
	}
	return result
}

// GetTrace returns a full trace with all spans.
func (tc *TraceCollector) GetTrace(traceID domain.TraceID) (*domain.Trace, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	trace, ok := tc.traces[traceID]
	if !ok {
		return nil, fmt.Errorf("trace not found: %s", traceID)
	}

	result := *trace // copy
	for _, span := range tc.spans {
		if span.TraceID == traceID {
			result.Spans = append(result.Spans, *span)
		}
	}
	return &result, nil
}

// --- Internal helpers ---

func (tc *TraceCollector) evictIfNeeded() {
	for len(tc.traceOrder) >= maxTraces {
		oldID := tc.traceOrder[0]
		tc.traceOrder = tc.traceOrder[1:]

		if oldTrace, ok := tc.traces[oldID]; ok {
			for sid, span := range tc.spans {
				if span.TraceID == oldTrace.ID {
					delete(tc.spans, sid)
				}
			}
			delete(tc.traces, oldID)
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}

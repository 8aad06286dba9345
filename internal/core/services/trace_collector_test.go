package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varekai/opsmind/internal/core/domain"
)

type traceRecorder struct {
	mu    sync.Mutex
	saved []*domain.Trace
	done  chan struct{}
}

func (r *traceRecorder) SaveTrace(_ context.Context, trace *domain.Trace) error {
	r.mu.Lock()
	r.saved = append(r.saved, trace)
	r.mu.Unlock()
	if r.done != nil {
		close(r.done)
	}
	return nil
}

func TestTraceLifecycle(t *testing.T) {
	tc := NewTraceCollector(testLogger(), nil)

	ctx, traceID, rootSpanID := tc.StartTrace(context.Background(), "task.db-health", nil)
	require.NotEmpty(t, traceID)
	require.NotEmpty(t, rootSpanID)

	_, spanID := tc.StartSpan(ctx, "llm.complete (step 1)", domain.SpanKindLLM, nil)
	tc.SetSpanInput(spanID, "the prompt")
	tc.EndSpan(spanID, domain.SpanStatusOK, "the response", "")

	tc.EndTrace(traceID, domain.SpanStatusOK, "")

	trace, err := tc.GetTrace(traceID)
	require.NoError(t, err)
	assert.Equal(t, domain.SpanStatusOK, trace.Status)
	assert.Equal(t, 2, trace.SpanCount)
	assert.NotNil(t, trace.EndTime)
	require.Len(t, trace.Spans, 2)
}

func TestSpanWithoutTraceIsNoop(t *testing.T) {
	tc := NewTraceCollector(testLogger(), nil)

	_, spanID := tc.StartSpan(context.Background(), "orphan", domain.SpanKindTool, nil)

	assert.Empty(t, spanID)
	// Ending a no-op span must be safe.
	tc.EndSpan(spanID, domain.SpanStatusOK, "", "")
}

func TestSpanInputOutputTruncated(t *testing.T) {
	tc := NewTraceCollector(testLogger(), nil)
	ctx, traceID, _ := tc.StartTrace(context.Background(), "task.big", nil)
	_, spanID := tc.StartSpan(ctx, "tool.big", domain.SpanKindTool, nil)

	big := strings.Repeat("x", maxInputOutput+500)
	tc.SetSpanInput(spanID, big)
	tc.EndSpan(spanID, domain.SpanStatusOK, big, "")

	trace, err := tc.GetTrace(traceID)
	require.NoError(t, err)
	for _, span := range trace.Spans {
		if span.ID == spanID {
			assert.Less(t, len(span.Input), len(big))
			assert.Contains(t, span.Input, "[truncated]")
			assert.Contains(t, span.Output, "[truncated]")
		}
	}
}

func TestEndTracePersists(t *testing.T) {
	repo := &traceRecorder{done: make(chan struct{})}
	tc := NewTraceCollector(testLogger(), repo)

	_, traceID, _ := tc.StartTrace(context.Background(), "task.persisted", nil)
	tc.EndTrace(traceID, domain.SpanStatusOK, "")

	select {
	case <-repo.done:
	case <-time.After(2 * time.Second):
		t.Fatal("trace was not persisted")
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.saved, 1)
	assert.Equal(t, traceID, repo.saved[0].ID)
	require.Len(t, repo.saved[0].Spans, 1, "the persisted copy carries its spans")
}

func TestListTracesNewestFirst(t *testing.T) {
	tc := NewTraceCollector(testLogger(), nil)

	_, first, _ := tc.StartTrace(context.Background(), "task.first", nil)
	_, second, _ := tc.StartTrace(context.Background(), "task.second", nil)
	tc.EndTrace(first, domain.SpanStatusOK, "")
	tc.EndTrace(second, domain.SpanStatusOK, "")

	summaries := tc.ListTraces(0)
	require.Len(t, summaries, 2)
	assert.Equal(t, second, summaries[0].ID)
	assert.Equal(t, first, summaries[1].ID)

	limited := tc.ListTraces(1)
	require.Len(t, limited, 1)
	assert.Equal(t, second, limited[0].ID)
}

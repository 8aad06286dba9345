package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTransport scripts the tool provider side of a test.
type fakeTransport struct {
	mu        sync.Mutex
	listFn    func(ctx context.Context) ([]ports.ToolListing, error)
	callFn    func(ctx context.Context, name string, args map[string]any) (domain.ToolCallResult, error)
	listCalls int
	callCalls int
}

func (t *fakeTransport) ListTools(ctx context.Context) ([]ports.ToolListing, error) {
	t.mu.Lock()
	t.listCalls++
	t.mu.Unlock()
	if t.listFn == nil {
		return nil, errors.New("no list function configured")
	}
	return t.listFn(ctx)
}

func (t *fakeTransport) CallTool(ctx context.Context, name string, args map[string]any) (domain.ToolCallResult, error) {
	t.mu.Lock()
	t.callCalls++
	t.mu.Unlock()
	if t.callFn == nil {
		return domain.ToolCallResult{}, errors.New("no call function configured")
	}
	return t.callFn(ctx, name, args)
}

func (t *fakeTransport) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.callCalls
}

// scriptedLLM answers prompts through a dispatch function and records every
// prompt it saw.
type scriptedLLM struct {
	mu      sync.Mutex
	respond func(prompt string) (string, error)
	prompts []string
}

func (s *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.respond(prompt)
}

func (s *scriptedLLM) seenPrompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// queueLLM pops canned responses in order.
type queueLLM struct {
	mu        sync.Mutex
	responses []string
	err       error // returned once the queue is empty, or always when set with no responses
}

func (q *queueLLM) Complete(context.Context, string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.responses) == 0 {
		if q.err != nil {
			return "", q.err
		}
		return "", errors.New("response queue exhausted")
	}
	r := q.responses[0]
	q.responses = q.responses[1:]
	return r, nil
}

func diagListing() ports.ToolListing {
	return ports.ToolListing{
		Name:        "check_service",
		Description: "Checks the health of a named service",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"service": map[string]any{"type": "string", "description": "service name"},
				"verbose": map[string]any{"type": "boolean"},
			},
			"required": []any{"service"},
		},
	}
}

func textResult(text string) domain.ToolCallResult {
	return domain.ToolCallResult{
		Content: []domain.ToolContent{{Type: "text", Text: text}},
	}
}

func loadedCatalog(t *testing.T, transport *fakeTransport) *ToolCatalog {
	t.Helper()
	catalog := NewToolCatalog(testLogger(), transport)
	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
	return catalog
}

func quickInvoker(catalog *ToolCatalog, transport *fakeTransport) *ToolInvoker {
	inv := NewToolInvoker(testLogger(), catalog, transport, time.Second, true)
	inv.sleep = func(time.Duration) {}
	return inv
}

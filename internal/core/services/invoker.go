package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"strings"
	"time"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

const (
	// toolCallAttempts bounds retries for timeouts and network-layer errors.
	toolCallAttempts = 2
	// observationPreview caps log output; the returned observation is never
	// truncated.
	observationPreview = 200
)

// ToolInvoker validates arguments against the catalog schema and performs a
// single bounded tool call. Its contract: never return an error — every
// outcome, success or failure, becomes an observation string so the
// transcript stays coherent and the model can adapt.
type ToolInvoker struct {
	logger    *slog.Logger
	catalog   *ToolCatalog
	transport ports.ToolTransport
	timeout   time.Duration
	validate  bool
	sleep     func(time.Duration) // swapped in tests
}

// NewToolInvoker creates an invoker bound to a loaded catalog.
func NewToolInvoker(logger *slog.Logger, catalog *ToolCatalog, transport ports.ToolTransport, timeout time.Duration, validate bool) *ToolInvoker {
	return &ToolInvoker{
		logger:    logger,
		catalog:   catalog,
		transport: transport,
		timeout:   timeout,
		validate:  validate,
		sleep:     time.Sleep,
	}
}

// Call invokes a tool and returns the observation string. The bool reports
// whether the call succeeded; failed calls return an error-marked observation.
func (inv *ToolInvoker) Call(ctx context.Context, name string, args map[string]any) (string, bool) {
	if inv.validate {
		if err := inv.validateCall(name, args); err != nil {
			inv.logger.Warn("tool call rejected", "tool", name, "error", err)
			return fmt.Sprintf("Error: %v", err), false
		}
	}

	var lastErr error
	for attempt := 0; attempt < toolCallAttempts; attempt++ {
		if attempt > 0 {
			// Linear backoff between attempts.
			inv.sleep(time.Duration(attempt+1) * time.Second)
		}

		callCtx, cancel := context.WithTimeout(ctx, inv.timeout)
		result, err := inv.transport.CallTool(callCtx, name, args)
		cancel()

		if err == nil {
			obs := normalizeResult(result)
			if result.IsError {
				inv.logger.Warn("tool returned error result", "tool", name, "observation", preview(obs))
				return fmt.Sprintf("Error: tool %s failed: %s", name, obs), false
			}
			inv.logger.Info("tool executed", "tool", name, "observation", preview(obs))
			return obs, true
		}

		lastErr = err
		if !isRecoverable(err) {
			inv.logger.Warn("tool call failed", "tool", name, "error", err)
			return fmt.Sprintf("Error calling %s: %v", name, err), false
		}
		inv.logger.Warn("tool call attempt failed, retrying", "tool", name, "attempt", attempt+1, "error", err)
	}

	inv.logger.Warn("tool call retries exhausted", "tool", name, "error", lastErr)
	return fmt.Sprintf("Error: %v: %s after %d attempts", domain.ErrToolTimeout, name, toolCallAttempts), false
}

// validateCall checks tool existence, required parameters, and primitive
// kinds against the catalog schema.
func (inv *ToolInvoker) validateCall(name string, args map[string]any) error {
	tool, ok := inv.catalog.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTool, name)
	}

	for _, p := range tool.Schema.Params {
		val, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("%w: %s", domain.ErrMissingParameter, p.Name)
			}
			continue
		}
		if !matchesKind(val, p.Kind) {
			return fmt.Errorf("%w: %s expects %s, got %T", domain.ErrTypeMismatch, p.Name, p.Kind, val)
		}
	}
	return nil
}

// matchesKind checks a decoded JSON value against the declared kind. Decoded
// JSON numbers arrive as float64; integers must be whole.
func matchesKind(val any, kind domain.ParamKind) bool {
	switch kind {
	case domain.KindString:
		_, ok := val.(string)
		return ok
	case domain.KindNumber:
		switch val.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case domain.KindInteger:
		switch v := val.(type) {
		case int, int64:
			return true
		case float64:
			return v == math.Trunc(v)
		}
		return false
	case domain.KindBoolean:
		_, ok := val.(bool)
		return ok
	case domain.KindArray:
		_, ok := val.([]any)
		return ok
	case domain.KindObject:
		_, ok := val.(map[string]any)
		return ok
	}
	return false
}

// normalizeResult extracts the first textual content part, falling back to a
// JSON rendering of the whole result.
func normalizeResult(result domain.ToolCallResult) string {
	if text, ok := result.FirstText(); ok {
		return text
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(raw)
}

// isRecoverable reports whether an error is worth a retry: timeouts and
// network/connection-layer failures. Everything else surfaces immediately.
func isRecoverable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "broken pipe", "eof", "http"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func preview(s string) string {
	if len(s) <= observationPreview {
		return s
	}
	return s[:observationPreview] + "..."
}

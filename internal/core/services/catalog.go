package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

// ToolCatalog holds the snapshot of remote tools for one engine instance.
// Loaded once, read-only thereafter; staleness within a process lifetime is
// accepted.
type ToolCatalog struct {
	logger    *slog.Logger
	transport ports.ToolTransport

	mu     sync.Mutex
	loaded bool
	tools  []domain.Tool
	byName map[string]domain.Tool
}

// NewToolCatalog creates an unloaded catalog bound to a transport.
func NewToolCatalog(logger *slog.Logger, transport ports.ToolTransport) *ToolCatalog {
	return &ToolCatalog{
		logger:    logger,
		transport: transport,
	}
}

// Load fetches and converts the provider's listing. The first successful load
// is cached; subsequent calls return the snapshot. A transport failure or a
// malformed listing yields domain.ErrCatalogUnavailable — the engine must not
// start on an unintentionally empty catalog. An empty-but-valid listing is
// permitted and simply produces an engine with no callable tools.
func (c *ToolCatalog) Load(ctx context.Context) ([]domain.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.tools, nil
	}

	listings, err := c.transport.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	tools := make([]domain.Tool, 0, len(listings))
	byName := make(map[string]domain.Tool, len(listings))
	for _, l := range listings {
		tool, err := convertListing(l)
		if err != nil {
			return nil, fmt.Errorf("%w: tool %q: %v", domain.ErrCatalogUnavailable, l.Name, err)
		}
		tools = append(tools, tool)
		byName[tool.Name] = tool
	}

	c.loaded = true
	c.tools = tools
	c.byName = byName
	c.logger.Info("tool catalog loaded", "count", len(tools))
	return c.tools, nil
}

// Tools returns the cached snapshot. Empty before Load succeeds.
func (c *ToolCatalog) Tools() []domain.Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tools
}

// Get returns a tool by name from the cached snapshot.
func (c *ToolCatalog) Get(name string) (domain.Tool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.byName[name]
	return t, ok
}

// convertListing turns a wire listing into a typed tool. The schema arrives
// JSON-Schema shaped: {"type":"object","properties":{...},"required":[...]}.
func convertListing(l ports.ToolListing) (domain.Tool, error) {
	if l.Name == "" {
		return domain.Tool{}, fmt.Errorf("listing has no name")
	}

	tool := domain.Tool{
		Name:        l.Name,
		Description: l.Description,
	}
	if l.InputSchema == nil {
		return tool, nil
	}

	props, _ := l.InputSchema["properties"].(map[string]any)
	required := map[string]bool{}
	if raw, ok := l.InputSchema["required"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	// Sort property names so the schema (and the prompts built from it) is
	// deterministic regardless of map iteration order.
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def, ok := props[name].(map[string]any)
		if !ok {
			return domain.Tool{}, fmt.Errorf("parameter %q has a malformed definition", name)
		}
		rawKind, _ := def["type"].(string)
		kind, err := domain.ParseParamKind(rawKind)
		if err != nil {
			return domain.Tool{}, fmt.Errorf("parameter %q: %w", name, err)
		}
		desc, _ := def["description"].(string)
		tool.Schema.Params = append(tool.Schema.Params, domain.ParamSpec{
			Name:        name,
			Kind:        kind,
			Description: desc,
			Required:    required[name],
		})
	}
	return tool, nil
}

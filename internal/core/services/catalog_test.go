package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

func TestCatalogLoadConvertsListing(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{diagListing()}, nil
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	tools, err := catalog.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, tools, 1)

	tool := tools[0]
	assert.Equal(t, "check_service", tool.Name)
	require.Len(t, tool.Schema.Params, 2)
	// Property names are sorted.
	assert.Equal(t, "service", tool.Schema.Params[0].Name)
	assert.Equal(t, domain.KindString, tool.Schema.Params[0].Kind)
	assert.True(t, tool.Schema.Params[0].Required)
	assert.Equal(t, "verbose", tool.Schema.Params[1].Name)
	assert.Equal(t, domain.KindBoolean, tool.Schema.Params[1].Kind)
	assert.False(t, tool.Schema.Params[1].Required)
}

func TestCatalogLoadCachesFirstSuccess(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{diagListing()}, nil
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	_, err := catalog.Load(context.Background())
	require.NoError(t, err)
	_, err = catalog.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, transport.listCalls)
}

func TestCatalogLoadWrapsTransportError(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return nil, errors.New("connection refused")
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	_, err := catalog.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Empty(t, catalog.Tools(), "a failed load leaves the catalog unloaded")
}

func TestCatalogLoadRejectsUnknownParamKind(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{{
				Name: "weird_tool",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"blob": map[string]any{"type": "binary"},
					},
				},
			}}, nil
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	_, err := catalog.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "weird_tool")
}

func TestCatalogLoadRejectsUnnamedTool(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{{Description: "anonymous"}}, nil
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	_, err := catalog.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestCatalogEmptyListingIsValid(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{}, nil
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	tools, err := catalog.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, tools)
	// The empty result is cached, not retried.
	_, err = catalog.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.listCalls)
}

func TestCatalogGet(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{diagListing()}, nil
		},
	}
	catalog := loadedCatalog(t, transport)

	tool, ok := catalog.Get("check_service")
	require.True(t, ok)
	assert.Equal(t, "check_service", tool.Name)

	_, ok = catalog.Get("missing")
	assert.False(t, ok)
}

func TestCatalogToolWithoutSchema(t *testing.T) {
	transport := &fakeTransport{
		listFn: func(context.Context) ([]ports.ToolListing, error) {
			return []ports.ToolListing{{Name: "ping", Description: "liveness probe"}}, nil
		},
	}
	catalog := NewToolCatalog(testLogger(), transport)

	tools, err := catalog.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Empty(t, tools[0].Schema.Params)
}

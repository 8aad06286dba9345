package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/varekai/opsmind/internal/core/domain"
	"github.com/varekai/opsmind/internal/core/ports"
)

const protocolVersion = "2024-11-05"

// Config locates the tool provider.
type Config struct {
	Address string // host:port of the provider's JSON-RPC endpoint
	Token   string // optional bearer token, sent in the handshake
	Timeout time.Duration
}

// Client speaks the tool-provider protocol over JSON-RPC 2.0: an initialize
// handshake, then tools/list and tools/call. It implements
// ports.ToolTransport; retries and observation shaping live in the invoker,
// not here.
type Client struct {
	logger *slog.Logger
	conn   *jsonrpc2.Conn
}

var _ ports.ToolTransport = (*Client)(nil)

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      clientInfo     `json:"clientInfo"`
	Token           string         `json:"token,omitempty"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string `json:"protocolVersion"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type listToolsResult struct {
	Tools []ports.ToolListing `json:"tools"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Dial connects to the provider and performs the handshake.
func Dial(ctx context.Context, logger *slog.Logger, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("tool provider address is required")
	}

	dialer := net.Dialer{Timeout: cfg.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tool provider at %s: %w", cfg.Address, err)
	}

	return NewClient(ctx, logger, netConn, cfg.Token)
}

// NewClient wraps an established connection and performs the initialize
// handshake. Exposed separately so tests can drive it over a pipe.
func NewClient(ctx context.Context, logger *slog.Logger, rwc io.ReadWriteCloser, token string) (*Client, error) {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})

	// The provider may push notifications (progress, log messages); none of
	// them affect the transport contract, so they are dropped.
	handler := jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		if !req.Notif {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}
		return nil, nil
	})

	c := &Client{
		logger: logger,
		conn:   jsonrpc2.NewConn(ctx, stream, handler),
	}

	var result initializeResult
	err := c.conn.Call(ctx, "initialize", initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: "opsmind", Version: "0.1"},
		Token:           token,
	}, &result)
	if err != nil {
		_ = c.conn.Close()
		return nil, fmt.Errorf("tool provider handshake failed: %w", err)
	}
	if err := c.conn.Notify(ctx, "notifications/initialized", struct{}{}); err != nil {
		_ = c.conn.Close()
		return nil, fmt.Errorf("failed to confirm handshake: %w", err)
	}

	logger.Info("connected to tool provider",
		"server", result.ServerInfo.Name,
		"version", result.ServerInfo.Version,
		"protocol", result.ProtocolVersion)

	return c, nil
}

// ListTools fetches the provider's tool listing.
func (c *Client) ListTools(ctx context.Context) ([]ports.ToolListing, error) {
	var result listToolsResult
	if err := c.conn.Call(ctx, "tools/list", struct{}{}, &result); err != nil {
		return nil, fmt.Errorf("tools/list failed: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes one tool. Provider-side tool failures arrive as isError
// results, not RPC errors; both are passed through untouched.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (domain.ToolCallResult, error) {
	var result domain.ToolCallResult
	err := c.conn.Call(ctx, "tools/call", callToolParams{Name: name, Arguments: args}, &result)
	if err != nil {
		return domain.ToolCallResult{}, fmt.Errorf("tools/call %s failed: %w", name, err)
	}
	return result, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

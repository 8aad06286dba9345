package domain

import "context"

// CompletionProvider is the opaque text-completion capability. The engine
// supplies a prompt and depends on nothing but the returned text.
type CompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ToolContent is one content part of a tool call result. Providers return a
// list of parts; the engine extracts the first textual one.
type ToolContent struct {
	Type string `json:"type"` // "text" or a provider-specific structured type
	Text string `json:"text,omitempty"`
	Data any    `json:"data,omitempty"`
}

// ToolCallResult is the raw outcome of one remote tool invocation.
type ToolCallResult struct {
	Content []ToolContent `json:"content"`
	IsError bool          `json:"isError"`
}

// FirstText returns the first textual content part, or a stringified form of
// the whole result when none is textual.
func (r ToolCallResult) FirstText() (string, bool) {
	for _, c := range r.Content {
		if c.Text != "" {
			return c.Text, true
		}
	}
	return "", false
}

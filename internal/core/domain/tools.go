package domain

import (
	"fmt"
	"strings"
)

// ParamKind is the closed set of primitive kinds a tool parameter may declare.
// Listings that declare anything else are rejected at catalog load rather than
// silently treated as strings.
type ParamKind string

const (
	KindString  ParamKind = "string"
	KindNumber  ParamKind = "number"
	KindInteger ParamKind = "integer"
	KindBoolean ParamKind = "boolean"
	KindArray   ParamKind = "array"
	KindObject  ParamKind = "object"
)

// ParseParamKind validates a raw schema type string against the closed kind set.
func ParseParamKind(raw string) (ParamKind, error) {
	switch k := ParamKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindString, KindNumber, KindInteger, KindBoolean, KindArray, KindObject:
		return k, nil
	default:
		return "", fmt.Errorf("unknown parameter kind %q", raw)
	}
}

// ParamSpec describes one tool parameter.
type ParamSpec struct {
	Name        string    `json:"name"`
	Kind        ParamKind `json:"kind"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
}

// ToolSchema is the ordered parameter schema of a tool. Parameters are
// sorted by name so prompts render deterministically regardless of the
// provider's JSON map ordering.
type ToolSchema struct {
	Params []ParamSpec `json:"params"`
}

// Param returns the spec for a named parameter.
func (s ToolSchema) Param(name string) (ParamSpec, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// RequiredParams returns the names of all required parameters, in schema order.
func (s ToolSchema) RequiredParams() []string {
	var out []string
	for _, p := range s.Params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Tool is one entry of the remote tool catalog. Immutable once fetched.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Schema      ToolSchema `json:"schema"`
}

// PromptLine renders the compact one-line form used in ReAct prompts:
// name: description | params: {a:string, b:number} | required: a
func (t Tool) PromptLine() string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(t.Name)
	b.WriteString(": ")
	b.WriteString(t.Description)

	if len(t.Schema.Params) > 0 {
		parts := make([]string, 0, len(t.Schema.Params))
		for _, p := range t.Schema.Params {
			parts = append(parts, p.Name+":"+string(p.Kind))
		}
		b.WriteString(" | params: {")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString("}")
	}
	if req := t.Schema.RequiredParams(); len(req) > 0 {
		b.WriteString(" | required: ")
		b.WriteString(strings.Join(req, ", "))
	}
	return b.String()
}

// FormatToolsForPrompt renders the whole catalog for inclusion in a prompt.
func FormatToolsForPrompt(tools []Tool) string {
	if len(tools) == 0 {
		return "No tools available."
	}
	var b strings.Builder
	b.WriteString("Available Tools:\n")
	for _, t := range tools {
		b.WriteString(t.PromptLine())
		b.WriteString("\n")
	}
	return b.String()
}

// ToolNames returns the catalog's tool names in listing order.
func ToolNames(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}

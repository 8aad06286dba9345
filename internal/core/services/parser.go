package services

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParsedStep is the structured form of one block of generated text.
type ParsedStep struct {
	Thought     string
	Action      string
	ActionInput map[string]any
}

// StepParser extracts Thought / Action / Action Input / Final Answer from
// model output. Malformed tool input is repaired or wrapped, never discarded.
type StepParser struct{}

// NewStepParser returns a parser. Stateless; safe for concurrent use.
func NewStepParser() *StepParser {
	return &StepParser{}
}

// Parse scans lines for the ReAct markers. An Action of "none"
// (case-insensitive) counts as no action.
func (p *StepParser) Parse(text string) ParsedStep {
	var step ParsedStep
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasPrefixFold(trimmed, "Thought:"):
			step.Thought = strings.TrimSpace(trimmed[len("Thought:"):])
		case hasPrefixFold(trimmed, "Action Input:"):
			step.ActionInput = p.parseActionInput(strings.TrimSpace(trimmed[len("Action Input:"):]))
		case hasPrefixFold(trimmed, "Action:"):
			action := strings.TrimSpace(trimmed[len("Action:"):])
			if !strings.EqualFold(action, "none") {
				step.Action = action
			}
		}
	}
	return step
}

// ParseFinalAnswer returns the trimmed remainder of a "Final Answer:" line.
// The answer runs to the end of the text: models place it last, and anything
// after it belongs to the answer.
func (p *StepParser) ParseFinalAnswer(text string) (string, bool) {
	idx := indexFold(text, "Final Answer:")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(text[idx+len("Final Answer:"):]), true
}

// parseActionInput decodes the Action Input payload: strict JSON first, one
// repair pass second (handles single quotes, trailing commas, unquoted keys),
// and finally wraps the raw text so malformed input never silently vanishes.
func (p *StepParser) parseActionInput(raw string) map[string]any {
	if raw == "" {
		return nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args
	}

	if repaired, err := jsonrepair.JSONRepair(raw); err == nil {
		if err := json.Unmarshal([]byte(repaired), &args); err == nil {
			return args
		}
	}

	return map[string]any{"input": raw}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func indexFold(s, sub string) int {
	lower := strings.ToLower(s)
	return strings.Index(lower, strings.ToLower(sub))
}

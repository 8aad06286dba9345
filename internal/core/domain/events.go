package domain

import "time"

// EngineEventType classifies engine lifecycle events.
type EngineEventType string

const (
	EventStepStarted   EngineEventType = "step_started"
	EventStepCompleted EngineEventType = "step_completed"
	EventToolCalled    EngineEventType = "tool_called"
)

// EngineEvent is emitted by the engine at step boundaries and tool calls.
type EngineEvent struct {
	Type       EngineEventType `json:"type"`
	RunID      string          `json:"run_id"`
	StepNumber int             `json:"step_number"`
	Tool       string          `json:"tool,omitempty"`
	Status     StepStatus      `json:"status,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// EventSink receives engine events. Implementations must not block: the
// engine publishes synchronously between steps.
type EventSink interface {
	Publish(e EngineEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(EngineEvent) {}

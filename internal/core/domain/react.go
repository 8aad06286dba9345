package domain

import "time"

// StepStatus tracks the lifecycle of a single reasoning step.
type StepStatus string

const (
	StepStatusPending    StepStatus = "pending"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
)

// ReActStep is one step of a reasoning run. Steps are appended to the
// transcript only after their LLM/tool call resolves and are never mutated
// afterwards. Step numbers are 1-based and strictly increasing within a run.
type ReActStep struct {
	StepNumber    int            `json:"step_number"`
	Thought       string         `json:"thought"`
	Action        string         `json:"action,omitempty"`
	ActionInput   map[string]any `json:"action_input,omitempty"`
	Observation   string         `json:"observation,omitempty"`
	Status        StepStatus     `json:"status"`
	IsFinal       bool           `json:"is_final"`
	FinalAnswer   string         `json:"final_answer,omitempty"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time,omitempty"`
}

// RunStatus is the terminal state of one reasoning run.
type RunStatus string

const (
	RunStatusCompleted  RunStatus = "completed"  // final answer produced
	RunStatusForced     RunStatus = "forced"     // loop guard synthesized an answer
	RunStatusIncomplete RunStatus = "incomplete" // step budget exhausted
	RunStatusAborted    RunStatus = "aborted"    // consecutive failures
	RunStatusCancelled  RunStatus = "cancelled"  // caller cancelled mid-run
)

// RunResult is the outcome of one ReAct reasoning run, transcript included.
type RunResult struct {
	Question string      `json:"question"`
	Answer   string      `json:"answer"`
	Status   RunStatus   `json:"status"`
	Steps    []ReActStep `json:"steps"`
}

// LastObservation returns the observation of the most recent completed step,
// or empty when no step succeeded.
func (r RunResult) LastObservation() string {
	for i := len(r.Steps) - 1; i >= 0; i-- {
		if r.Steps[i].Status == StepStatusCompleted && r.Steps[i].Observation != "" {
			return r.Steps[i].Observation
		}
	}
	return ""
}

package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TaskStatus is the outcome classification of one task.
type TaskStatus string

const (
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusPartial TaskStatus = "partial"
	TaskStatusFailed  TaskStatus = "failed"
)

// TaskSpec is one task as declared by the caller (or a task file): an intent
// to satisfy plus an optional human description and name.
type TaskSpec struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Intent      string `json:"intent" yaml:"intent"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TaskAttempt records one refinement round: the plan that was tried and what
// the engine produced for it.
type TaskAttempt struct {
	Iteration int    `json:"iteration"`
	Plan      string `json:"plan"`
	Result    string `json:"result"`
}

// TaskResult is the structured per-task report. Immutable after creation;
// stored in the shared context map so later tasks can read earlier outputs.
type TaskResult struct {
	TaskName   string        `json:"task_name"`
	Status     TaskStatus    `json:"status"`
	Output     string        `json:"output"`
	Iterations int           `json:"iterations"`
	Summary    string        `json:"summary"`
	Attempts   []TaskAttempt `json:"attempts"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe    = regexp.MustCompile(`\s+`)
	slugCollapseRe = regexp.MustCompile(`-+`)
)

// SlugifyTaskName derives a stable task name from a free-form description:
// lowercased, hyphenated, capped at 50 chars. Falls back to task-<index>.
func SlugifyTaskName(description string, index int) string {
	fallback := "task-" + strconv.Itoa(index)
	if strings.TrimSpace(description) == "" {
		return fallback
	}
	name := strings.ToLower(description)
	name = slugStripRe.ReplaceAllString(name, "")
	name = slugSpaceRe.ReplaceAllString(strings.TrimSpace(name), "-")
	name = slugCollapseRe.ReplaceAllString(name, "-")
	if len(name) > 50 {
		name = strings.TrimRight(name[:50], "-")
	}
	if name == "" {
		return fallback
	}
	return name
}

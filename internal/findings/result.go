package findings

import "time"

// Status is the terminal state of one task execution.
type Status string

const (
	// StatusSuccess means the task ran to completion.
	StatusSuccess Status = "success"

	// StatusFailure means the task ran but could not finish its analysis.
	// Failures are recoverable by default: the aggregator folds them into
	// a low-confidence finding instead of dropping the run's output.
	StatusFailure Status = "failure"

	// StatusTimeout means the task exceeded its deadline. Timed-out tasks
	// contribute no findings and surface in the report's Incomplete list.
	StatusTimeout Status = "timeout"
)

// Result is what an executor produces for one task.
type Result struct {
	// TaskID names the originating task.
	TaskID string `json:"task_id"`

	// Status is the task's terminal state.
	Status Status `json:"status"`

	// Findings are the issues the task reported, in report order.
	Findings []Finding `json:"findings,omitempty"`

	// Error carries the failure detail when Status is StatusFailure.
	Error string `json:"error,omitempty"`

	// Duration is the wall time the task took, recorded by the dispatcher.
	Duration time.Duration `json:"duration,omitempty"`

	// Metadata is arbitrary executor-supplied detail (resource usage,
	// attempt counts). The engine carries it through without inspection.
	Metadata map[string]any `json:"metadata,omitempty"`
}

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/convergd/internal/findings"
	"github.com/fyrsmithlabs/convergd/internal/graph"
)

// Executor performs a task and returns its result. It is the engine's only
// external collaborator: the dispatcher never inspects what an executor
// does internally.
//
// Implementations must be safe to call concurrently with different tasks,
// must honor context cancellation by returning promptly, and must not block
// longer than any timeout embedded in the task payload (reporting
// StatusTimeout instead).
type Executor interface {
	Execute(ctx context.Context, task graph.Task) (findings.Result, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task graph.Task) (findings.Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task graph.Task) (findings.Result, error) {
	return f(ctx, task)
}

// ErrFatalTask matches any FatalTaskError via errors.Is.
var ErrFatalTask = errors.New("fatal task error")

// FatalTaskError marks a task failure the caller declared non-recoverable.
// The dispatcher aborts the remaining schedule when an executor returns
// one; partial results collected up to that point are still returned.
type FatalTaskError struct {
	TaskID string
	Err    error
}

func (e *FatalTaskError) Error() string {
	return fmt.Sprintf("fatal task error: task %q: %v", e.TaskID, e.Err)
}

func (e *FatalTaskError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFatalTask) match without unwrapping order games.
func (e *FatalTaskError) Is(target error) bool { return target == ErrFatalTask }

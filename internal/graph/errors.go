package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph construction failures. Use errors.Is to branch
// on the failure class and errors.As to recover the typed detail.
var (
	ErrEmptyID           = errors.New("task id is required")
	ErrDuplicateID       = errors.New("duplicate task id")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrCycle             = errors.New("dependency cycle detected")
	ErrFinalized         = errors.New("graph already finalized")
	ErrEmptyGraph        = errors.New("graph has no tasks")
)

// DuplicateIDError reports an AddTask call that reused an existing task ID.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task id: %q", e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// UnknownDependencyError reports a dependency reference that no task in the
// graph satisfies at Finalize time.
type UnknownDependencyError struct {
	// TaskID is the task that declared the dangling reference.
	TaskID string
	// DependencyID is the referenced ID that does not exist.
	DependencyID string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.TaskID, e.DependencyID)
}

func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// CycleError reports a dependency cycle. Members holds one stable witness
// path in forward dependency order, with the first ID repeated at the end
// to close the loop.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	if len(e.Members) == 0 {
		return ErrCycle.Error()
	}
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(e.Members, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

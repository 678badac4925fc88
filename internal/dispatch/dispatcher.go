package dispatch

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convergd/internal/findings"
	"github.com/fyrsmithlabs/convergd/internal/graph"
)

var tracer = otel.Tracer("convergd/dispatch")

// DefaultConcurrency bounds in-flight tasks when no limit is configured.
const DefaultConcurrency = 4

// Dispatcher walks a task graph and executes ready tasks in parallel up to
// a concurrency limit, collecting results as they complete.
//
// The dispatcher bounds only how many tasks it has outstanding at once; how
// an executor parallelizes a single task internally is its own business.
type Dispatcher struct {
	limit   int
	logger  *zap.Logger
	metrics *Metrics
}

// NewDispatcher creates a dispatcher with the given concurrency limit.
// Limits below 1 fall back to DefaultConcurrency.
func NewDispatcher(limit int) *Dispatcher {
	if limit < 1 {
		limit = DefaultConcurrency
	}
	return &Dispatcher{limit: limit}
}

// SetLogger sets the logger for this dispatcher. Optional.
func (d *Dispatcher) SetLogger(l *zap.Logger) {
	d.logger = l
}

// SetMetrics sets the metrics tracker for this dispatcher. Optional.
func (d *Dispatcher) SetMetrics(m *Metrics) {
	d.metrics = m
}

type taskDone struct {
	result findings.Result
	fatal  *FatalTaskError
}

// Run executes the graph to completion and returns results keyed by task ID.
//
// The schedule loop keeps a completed set and a pending (in-flight) set; it
// launches every ready task the concurrency budget allows, then blocks
// until at least one in-flight task finishes. Both sets are owned by this
// single goroutine; workers communicate only through the done channel.
//
// Termination:
//   - all tasks completed → full results, nil error
//   - an executor returned a FatalTaskError → partial results plus that
//     error; nothing new is launched and in-flight tasks are drained
//   - ctx cancelled → partial results plus ctx.Err(); in-flight tasks
//     finish or cancel per the executor's contract
//
// A plain (non-fatal) executor error is recovered locally as a
// StatusFailure result so one task's failure never drops the run's output.
func (d *Dispatcher) Run(ctx context.Context, g *graph.Graph, executor Executor) (map[string]findings.Result, error) {
	completed := make(map[string]struct{}, g.Len())
	pending := make(map[string]struct{}, d.limit)
	results := make(map[string]findings.Result, g.Len())

	done := make(chan taskDone, g.Len())
	var fatal *FatalTaskError

	for len(completed) < g.Len() {
		// Launch ready tasks unless aborting or cancelled.
		if fatal == nil && ctx.Err() == nil {
			for _, task := range g.ReadyTasks(completed) {
				if _, inFlight := pending[task.ID]; inFlight {
					continue
				}
				if len(pending) >= d.limit {
					break
				}
				pending[task.ID] = struct{}{}
				go d.execute(ctx, executor, task, done)
			}
		}

		if len(pending) == 0 {
			// Nothing in flight and nothing launchable: we are draining
			// after a fatal error or cancellation.
			break
		}

		// Wait-any: first finished, first consumed.
		msg := <-done
		delete(pending, msg.result.TaskID)
		completed[msg.result.TaskID] = struct{}{}
		results[msg.result.TaskID] = msg.result
		if msg.fatal != nil && fatal == nil {
			fatal = msg.fatal
			if d.logger != nil {
				d.logger.Error("aborting schedule on fatal task error",
					zap.String("task", msg.fatal.TaskID),
					zap.Error(msg.fatal.Err))
			}
			if d.metrics != nil {
				d.metrics.RecordAbort()
			}
		}
	}

	if fatal != nil {
		return results, fatal
	}
	if err := ctx.Err(); err != nil && len(completed) < g.Len() {
		return results, err
	}
	return results, nil
}

// execute runs one task on a worker goroutine and reports on done. It never
// lets an executor error escape as a missing result: non-fatal errors
// become StatusFailure results for that task.
func (d *Dispatcher) execute(ctx context.Context, executor Executor, task graph.Task, done chan<- taskDone) {
	taskCtx, span := tracer.Start(ctx, "dispatch.execute_task")
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("task.track", task.Track),
	)
	defer span.End()

	start := time.Now()
	result, err := executor.Execute(taskCtx, task)
	duration := time.Since(start)

	// The dispatcher owns result identity and timing; executors may leave
	// them unset.
	result.TaskID = task.ID
	result.Duration = duration

	var fatal *FatalTaskError
	if err != nil {
		if errors.As(err, &fatal) {
			fatal.TaskID = task.ID
		}
		result.Status = findings.StatusFailure
		if result.Error == "" {
			result.Error = err.Error()
		}
	} else if result.Status == "" {
		result.Status = findings.StatusSuccess
	}

	d.observe(result, fatal, duration)
	done <- taskDone{result: result, fatal: fatal}
}

func (d *Dispatcher) observe(result findings.Result, fatal *FatalTaskError, duration time.Duration) {
	if d.logger != nil {
		switch {
		case fatal != nil:
			// Logged by the collector with abort context.
		case result.Status == findings.StatusTimeout:
			d.logger.Warn("task timed out",
				zap.String("task", result.TaskID),
				zap.Duration("duration", duration))
		case result.Status == findings.StatusFailure:
			d.logger.Warn("task failed",
				zap.String("task", result.TaskID),
				zap.String("error", result.Error))
		default:
			d.logger.Debug("task executed",
				zap.String("task", result.TaskID),
				zap.Duration("duration", duration),
				zap.Int("findings", len(result.Findings)))
		}
	}
	if d.metrics != nil {
		d.metrics.RecordTask(string(result.Status), duration.Seconds())
		if result.Status == findings.StatusTimeout {
			d.metrics.RecordTimeout(result.TaskID)
		}
	}
}

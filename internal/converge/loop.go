package converge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convergd/internal/dispatch"
	"github.com/fyrsmithlabs/convergd/internal/findings"
	"github.com/fyrsmithlabs/convergd/internal/gate"
	"github.com/fyrsmithlabs/convergd/internal/graph"
)

var tracer = otel.Tracer("convergd/converge")

// DefaultMaxIterations bounds the fix-and-recheck loop when the caller does
// not configure a budget.
const DefaultMaxIterations = 3

// Remediator attempts to address the current unresolved findings between
// iterations. It returns an error only when remediation could not be
// attempted at all; merely failing to fix everything is not an error, the
// next gate evaluation discovers that.
type Remediator interface {
	Remediate(ctx context.Context, unresolved []findings.Finding) error
}

// RemediatorFunc adapts a function to the Remediator interface.
type RemediatorFunc func(ctx context.Context, unresolved []findings.Finding) error

// Remediate calls f.
func (f RemediatorFunc) Remediate(ctx context.Context, unresolved []findings.Finding) error {
	return f(ctx, unresolved)
}

// Config assembles the collaborators and budgets for one loop.
type Config struct {
	// Graphs builds the task graph for each iteration. A fresh factory
	// call per iteration lets remediation change what gets scheduled next.
	Graphs func() (*graph.Graph, error)

	// Executor performs the scheduled tasks.
	Executor dispatch.Executor

	// Remediator runs between failing iterations.
	Remediator Remediator

	// Aggregator consolidates findings. The zero value applies the default
	// confidence threshold and fingerprinting.
	Aggregator findings.Aggregator

	// Thresholds gate each iteration. The zero value means
	// gate.DefaultThresholds.
	Thresholds *gate.Thresholds

	// MaxIterations caps scheduling cycles. Zero means
	// DefaultMaxIterations.
	MaxIterations int

	// Concurrency bounds the dispatcher's in-flight tasks. Zero means
	// dispatch.DefaultConcurrency.
	Concurrency int
}

func (c Config) validate() error {
	if c.Graphs == nil {
		return errors.New("converge: graph factory is required")
	}
	if c.Executor == nil {
		return errors.New("converge: executor is required")
	}
	if c.Remediator == nil {
		return errors.New("converge: remediator is required")
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("converge: max iterations must be >= 0, got %d", c.MaxIterations)
	}
	if c.Thresholds != nil {
		if err := c.Thresholds.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Outcome is the terminal result of a convergence run. Both Done and
// Escalated are designed outcomes; escalation signals that a human must
// intervene, not that the engine failed.
type Outcome struct {
	// SessionID identifies this run in logs and traces.
	SessionID string `json:"session_id"`

	// State is StateDone or StateEscalated.
	State State `json:"state"`

	// Reason is set when State is StateEscalated.
	Reason EscalationReason `json:"reason,omitempty"`

	// Verdict is the last gate evaluation.
	Verdict gate.Verdict `json:"verdict"`

	// Findings are the unresolved findings from the final iteration.
	Findings []findings.Finding `json:"findings,omitempty"`

	// Iterations is the number of scheduling cycles used.
	Iterations int `json:"iterations"`

	// History holds one record per iteration, oldest first.
	History []Iteration `json:"history"`
}

// Done reports whether the run converged to a pass.
func (o Outcome) Done() bool { return o.State == StateDone }

// Loop drives the bounded do-work/check/fix/recheck cycle:
//
//	Scheduling -> Evaluating -> {Done, Remediating, Escalated}
//
// Each iteration builds a graph, dispatches it, aggregates the findings,
// and gates them. A pass ends the run; otherwise the remediator gets a
// chance and the cycle repeats until the iteration budget runs out or two
// consecutive iterations make no progress.
type Loop struct {
	cfg        Config
	thresholds gate.Thresholds
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	metrics    *Metrics
}

// New validates the config and creates a loop.
func New(cfg Config) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	thresholds := gate.DefaultThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	return &Loop{
		cfg:        cfg,
		thresholds: thresholds,
		dispatcher: dispatch.NewDispatcher(cfg.Concurrency),
	}, nil
}

// SetLogger sets the logger for this loop and its dispatcher. Optional.
func (l *Loop) SetLogger(logger *zap.Logger) {
	l.logger = logger
	l.dispatcher.SetLogger(logger)
}

// SetMetrics sets the metrics tracker for this loop. Optional.
func (l *Loop) SetMetrics(m *Metrics) {
	l.metrics = m
}

// Run executes the loop to a terminal state.
//
// The returned error is non-nil only for graph construction failures, which
// are always surfaced synchronously; every designed terminal, escalation
// and cancellation included, comes back as an Outcome with a nil error so
// callers always have actionable partial output.
func (l *Loop) Run(ctx context.Context) (Outcome, error) {
	s := newSession()
	logger := l.logger
	if logger != nil {
		logger = logger.With(zap.String("session", s.id))
	}

	var verdict gate.Verdict
	for {
		iterStart := time.Now()
		iterCtx, span := tracer.Start(ctx, "converge.iteration")
		span.SetAttributes(
			attribute.String("session.id", s.id),
			attribute.Int("iteration", s.iterations()+1),
		)

		// Scheduling: a fresh graph per iteration, so remediation can
		// reshape the next round of work.
		g, err := l.cfg.Graphs()
		if err != nil {
			span.End()
			return l.finish(s, StateEscalated, ReasonNone, verdict),
				fmt.Errorf("building task graph: %w", err)
		}

		results, runErr := l.dispatcher.Run(iterCtx, g, l.cfg.Executor)
		fatalAbort := false
		cancelled := false
		if runErr != nil {
			switch {
			case errors.Is(runErr, dispatch.ErrFatalTask):
				fatalAbort = true
			case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
				cancelled = true
			}
		}

		// Evaluating: aggregate whatever was collected, even after an
		// abort, so the caller always sees partial output.
		report := l.cfg.Aggregator.Aggregate(resultList(results))
		verdict = gate.Evaluate(report, l.thresholds)
		it := s.record(verdict, fatalAbort, time.Since(iterStart))
		span.SetAttributes(
			attribute.String("verdict", string(verdict.Decision)),
			attribute.Int("unresolved", it.Unresolved),
		)
		span.End()

		if logger != nil {
			logger.Info("iteration evaluated",
				zap.Int("iteration", it.Number),
				zap.String("verdict", string(verdict.Decision)),
				zap.Int("unresolved", it.Unresolved),
				zap.Bool("progress", it.Progress),
				zap.Bool("fatal_abort", fatalAbort))
		}
		if l.metrics != nil {
			l.metrics.RecordIteration(string(verdict.Decision))
		}

		if cancelled || ctx.Err() != nil {
			return l.finish(s, StateEscalated, ReasonCancelled, verdict), nil
		}

		// A pass on a fatally aborted iteration is a pass on partial
		// results; the run is not clean, so it does not terminate Done.
		if verdict.Pass() && !fatalAbort {
			return l.finish(s, StateDone, ReasonNone, verdict), nil
		}

		if s.iterations() >= l.cfg.MaxIterations {
			return l.finish(s, StateEscalated, ReasonMaxIterations, verdict), nil
		}

		// Remediating.
		if err := l.cfg.Remediator.Remediate(ctx, verdict.Findings); err != nil {
			if logger != nil {
				logger.Warn("remediation failed", zap.Error(err))
			}
			return l.finish(s, StateEscalated, ReasonRemediationFailed, verdict), nil
		}

		if s.stalled() {
			return l.finish(s, StateEscalated, ReasonNoProgress, verdict), nil
		}
	}
}

func (l *Loop) finish(s *session, state State, reason EscalationReason, verdict gate.Verdict) Outcome {
	if l.metrics != nil {
		l.metrics.RecordRun(string(state), string(reason), s.iterations())
	}
	if l.logger != nil {
		l.logger.Info("convergence run finished",
			zap.String("session", s.id),
			zap.String("state", string(state)),
			zap.String("reason", string(reason)),
			zap.Int("iterations", s.iterations()))
	}
	return Outcome{
		SessionID:  s.id,
		State:      state,
		Reason:     reason,
		Verdict:    verdict,
		Findings:   verdict.Findings,
		Iterations: s.iterations(),
		History:    s.history,
	}
}

// resultList flattens the dispatcher's result map into the aggregator's
// input. Aggregation output ordering does not depend on this order.
func resultList(results map[string]findings.Result) []findings.Result {
	out := make([]findings.Result, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	return out
}

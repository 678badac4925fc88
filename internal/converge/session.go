package converge

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/convergd/internal/gate"
)

// State names a position in the loop's state machine.
type State string

const (
	StateScheduling  State = "scheduling"
	StateEvaluating  State = "evaluating"
	StateRemediating State = "remediating"
	StateDone        State = "done"
	StateEscalated   State = "escalated"
)

// EscalationReason explains why a run ended in StateEscalated.
type EscalationReason string

const (
	// ReasonNone means the run did not escalate.
	ReasonNone EscalationReason = ""

	// ReasonMaxIterations means the iteration budget ran out before a pass.
	ReasonMaxIterations EscalationReason = "max_iterations"

	// ReasonNoProgress means two consecutive iterations failed to shrink
	// the unresolved critical/high finding count.
	ReasonNoProgress EscalationReason = "no_progress"

	// ReasonRemediationFailed means the remediate step itself errored.
	ReasonRemediationFailed EscalationReason = "remediation_failed"

	// ReasonCancelled means the run's context was cancelled.
	ReasonCancelled EscalationReason = "cancelled"
)

// Iteration records one scheduling/evaluation cycle for observability.
type Iteration struct {
	// Number is 1-based.
	Number int `json:"number"`

	// Verdict is the gate's call for this iteration.
	Verdict gate.Verdict `json:"verdict"`

	// Unresolved is the critical+high finding count the progress signal
	// tracks.
	Unresolved int `json:"unresolved"`

	// Progress is true when Unresolved strictly shrank since the previous
	// iteration. The first iteration has nothing to compare against.
	Progress bool `json:"progress"`

	// FatalAbort is true when the dispatcher aborted this iteration on a
	// fatal task error. A fatal abort always counts as no progress.
	FatalAbort bool `json:"fatal_abort,omitempty"`

	// Duration is the wall time of the scheduling and evaluation phases.
	Duration time.Duration `json:"duration"`
}

// session is the ephemeral per-run state. It lives for one Loop.Run call
// and is never persisted.
type session struct {
	id               string
	startedAt        time.Time
	history          []Iteration
	prevUnresolved   int
	hasPrev          bool
	noProgressStreak int
}

func newSession() *session {
	return &session{
		id:        uuid.NewString(),
		startedAt: time.Now(),
	}
}

// record appends one iteration, deriving the progress signal from the
// previous iteration's unresolved count.
func (s *session) record(verdict gate.Verdict, fatalAbort bool, duration time.Duration) Iteration {
	unresolved := verdict.UnresolvedCriticalHigh()
	progress := s.hasPrev && unresolved < s.prevUnresolved
	if fatalAbort {
		progress = false
	}

	it := Iteration{
		Number:     len(s.history) + 1,
		Verdict:    verdict,
		Unresolved: unresolved,
		Progress:   progress,
		FatalAbort: fatalAbort,
		Duration:   duration,
	}
	s.history = append(s.history, it)
	s.prevUnresolved = unresolved
	s.hasPrev = true

	if progress {
		s.noProgressStreak = 0
	} else {
		s.noProgressStreak++
	}
	return it
}

// stalled reports whether the run has gone two consecutive iterations
// without progress.
func (s *session) stalled() bool {
	return s.noProgressStreak >= 2
}

func (s *session) iterations() int { return len(s.history) }

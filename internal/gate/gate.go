// Package gate evaluates an aggregated finding set against severity-count
// thresholds and renders a pass/needs-work/blocked verdict.
package gate

import (
	"fmt"

	"github.com/fyrsmithlabs/convergd/internal/findings"
)

// Decision is the gate's overall call on a finding set.
type Decision string

const (
	// DecisionPass means the run is clean enough to accept.
	DecisionPass Decision = "pass"

	// DecisionNeedsWork means remediable issues exceed the thresholds.
	DecisionNeedsWork Decision = "needs_work"

	// DecisionBlocked means a critical count was exceeded; the run must
	// not proceed regardless of anything else.
	DecisionBlocked Decision = "blocked"
)

// Thresholds caps how many findings of each severity a run may carry and
// still pass. Low findings never gate.
type Thresholds struct {
	MaxCritical int `json:"max_critical" koanf:"max_critical"`
	MaxHigh     int `json:"max_high" koanf:"max_high"`
	MaxMedium   int `json:"max_medium" koanf:"max_medium"`
}

// DefaultThresholds returns the caps used when nothing is configured:
// no criticals, at most 2 high and 10 medium findings.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxCritical: 0, MaxHigh: 2, MaxMedium: 10}
}

// Validate rejects negative caps.
func (t Thresholds) Validate() error {
	if t.MaxCritical < 0 || t.MaxHigh < 0 || t.MaxMedium < 0 {
		return fmt.Errorf("gate thresholds must be >= 0, got %+v", t)
	}
	return nil
}

// Verdict pairs the decision with the severity counts that produced it and
// the findings above the reporting threshold.
type Verdict struct {
	Decision Decision `json:"decision"`

	// Counts holds the per-severity tallies the decision was based on.
	Counts map[findings.Severity]int `json:"counts"`

	// Findings are the reportable findings, most important first.
	Findings []findings.Finding `json:"findings,omitempty"`

	// Incomplete lists tasks that never finished, carried through from the
	// aggregation report.
	Incomplete []string `json:"incomplete,omitempty"`
}

// Pass reports whether the verdict is a pass.
func (v Verdict) Pass() bool { return v.Decision == DecisionPass }

// UnresolvedCriticalHigh is the count of critical plus high findings. The
// convergence loop uses it as its progress signal.
func (v Verdict) UnresolvedCriticalHigh() int {
	return v.Counts[findings.SeverityCritical] + v.Counts[findings.SeverityHigh]
}

// Evaluate renders a verdict for an aggregated report.
//
// Precedence is strict: a critical count over MaxCritical blocks no matter
// how few high or medium findings exist; otherwise high then medium
// overflows yield needs-work; otherwise pass.
func Evaluate(report findings.Report, thresholds Thresholds) Verdict {
	counts := report.CountBySeverity()

	v := Verdict{
		Counts:     counts,
		Findings:   report.Findings,
		Incomplete: report.Incomplete,
	}

	switch {
	case counts[findings.SeverityCritical] > thresholds.MaxCritical:
		v.Decision = DecisionBlocked
	case counts[findings.SeverityHigh] > thresholds.MaxHigh:
		v.Decision = DecisionNeedsWork
	case counts[findings.SeverityMedium] > thresholds.MaxMedium:
		v.Decision = DecisionNeedsWork
	default:
		v.Decision = DecisionPass
	}
	return v
}

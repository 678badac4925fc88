package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_DedupKeepsMaxConfidenceAndUnionsSources(t *testing.T) {
	results := []Result{
		{
			TaskID: "reviewer-1",
			Status: StatusSuccess,
			Findings: []Finding{
				{Severity: SeverityHigh, Confidence: 85, Description: "unchecked error return", Location: "store.go:42"},
			},
		},
		{
			TaskID: "reviewer-2",
			Status: StatusSuccess,
			Findings: []Finding{
				{Severity: SeverityHigh, Confidence: 92, Description: "Unchecked  error return", Location: "store.go:42"},
			},
		},
	}

	report := Aggregator{}.Aggregate(results)

	require.Len(t, report.Findings, 1)
	merged := report.Findings[0]
	assert.Equal(t, 92, merged.Confidence)
	assert.Equal(t, []string{"reviewer-1", "reviewer-2"}, merged.Sources)
}

func TestAggregate_DedupIdempotent(t *testing.T) {
	f := Finding{Severity: SeverityMedium, Confidence: 90, Description: "dup", Location: "x"}
	results := []Result{
		{TaskID: "a", Status: StatusSuccess, Findings: []Finding{f}},
		{TaskID: "a", Status: StatusSuccess, Findings: []Finding{f}},
	}

	report := Aggregator{ConfidenceThreshold: 50}.Aggregate(results)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, []string{"a"}, report.Findings[0].Sources)
}

func TestAggregate_ConfidenceThresholdFilters(t *testing.T) {
	results := []Result{
		{TaskID: "t", Status: StatusSuccess, Findings: []Finding{
			{Severity: SeverityHigh, Confidence: 79, Description: "just below"},
			{Severity: SeverityLow, Confidence: 80, Description: "at threshold"},
		}},
	}

	report := Aggregator{}.Aggregate(results)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "at threshold", report.Findings[0].Description)
	assert.Equal(t, 1, report.Suppressed)
}

func TestAggregate_OrderingContract(t *testing.T) {
	results := []Result{
		{TaskID: "t", Status: StatusSuccess, Findings: []Finding{
			{Severity: SeverityLow, Confidence: 99, Description: "low but sure"},
			{Severity: SeverityCritical, Confidence: 81, Description: "critical"},
			{Severity: SeverityHigh, Confidence: 95, Description: "high strong"},
			{Severity: SeverityHigh, Confidence: 82, Description: "high weak"},
		}},
	}

	report := Aggregator{}.Aggregate(results)

	require.Len(t, report.Findings, 4)
	got := make([]string, 0, 4)
	for _, f := range report.Findings {
		got = append(got, f.Description)
	}
	assert.Equal(t, []string{"critical", "high strong", "high weak", "low but sure"}, got)
}

func TestAggregate_OrderingIndependentOfArrival(t *testing.T) {
	a := Result{TaskID: "a", Status: StatusSuccess, Findings: []Finding{
		{Severity: SeverityHigh, Confidence: 90, Description: "one"},
	}}
	b := Result{TaskID: "b", Status: StatusSuccess, Findings: []Finding{
		{Severity: SeverityCritical, Confidence: 85, Description: "two"},
	}}

	first := Aggregator{}.Aggregate([]Result{a, b})
	second := Aggregator{}.Aggregate([]Result{b, a})

	assert.Equal(t, first.Findings, second.Findings)
}

func TestAggregate_TimeoutGoesToIncomplete(t *testing.T) {
	results := []Result{
		{TaskID: "slow", Status: StatusTimeout, Findings: []Finding{
			// Findings attached to a timeout are discarded.
			{Severity: SeverityCritical, Confidence: 100, Description: "partial"},
		}},
		{TaskID: "ok", Status: StatusSuccess},
	}

	report := Aggregator{}.Aggregate(results)

	assert.Empty(t, report.Findings)
	assert.Equal(t, []string{"slow"}, report.Incomplete)
}

func TestAggregate_FailureBecomesLowConfidenceFinding(t *testing.T) {
	results := []Result{
		{TaskID: "broken", Status: StatusFailure, Error: "exit status 2"},
	}

	report := Aggregator{ConfidenceThreshold: 10}.Aggregate(results)

	require.Len(t, report.Findings, 1)
	f := report.Findings[0]
	assert.Equal(t, SeverityLow, f.Severity)
	assert.Less(t, f.Confidence, DefaultConfidenceThreshold)
	assert.Contains(t, f.Description, "analysis incomplete")
	assert.Contains(t, f.Description, "exit status 2")
	assert.Equal(t, []string{"broken"}, f.Sources)
}

func TestAggregate_FailureSuppressedAtDefaultThreshold(t *testing.T) {
	results := []Result{
		{TaskID: "broken", Status: StatusFailure, Error: "boom"},
	}

	report := Aggregator{}.Aggregate(results)

	assert.Empty(t, report.Findings)
	assert.Equal(t, 1, report.Suppressed)
}

func TestAggregate_CustomFingerprint(t *testing.T) {
	// Collapse everything at the same location regardless of wording.
	byLocation := func(f Finding) string { return f.Location }

	results := []Result{
		{TaskID: "a", Status: StatusSuccess, Findings: []Finding{
			{Severity: SeverityHigh, Confidence: 85, Description: "nil deref", Location: "p.go:1"},
		}},
		{TaskID: "b", Status: StatusSuccess, Findings: []Finding{
			{Severity: SeverityMedium, Confidence: 90, Description: "possible nil pointer", Location: "p.go:1"},
		}},
	}

	report := Aggregator{Fingerprint: byLocation}.Aggregate(results)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, 90, report.Findings[0].Confidence)
	assert.Equal(t, []string{"a", "b"}, report.Findings[0].Sources)
}

func TestAggregate_ExplicitFingerprintWins(t *testing.T) {
	results := []Result{
		{TaskID: "a", Status: StatusSuccess, Findings: []Finding{
			{Fingerprint: "same", Severity: SeverityHigh, Confidence: 85, Description: "worded one way"},
		}},
		{TaskID: "b", Status: StatusSuccess, Findings: []Finding{
			{Fingerprint: "same", Severity: SeverityHigh, Confidence: 80, Description: "worded another way"},
		}},
	}

	report := Aggregator{}.Aggregate(results)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, "worded one way", report.Findings[0].Description)
}

func TestReport_CountBySeverity(t *testing.T) {
	report := Report{Findings: []Finding{
		{Severity: SeverityCritical},
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityLow},
	}}

	counts := report.CountBySeverity()
	assert.Equal(t, 1, counts[SeverityCritical])
	assert.Equal(t, 2, counts[SeverityHigh])
	assert.Equal(t, 0, counts[SeverityMedium])
	assert.Equal(t, 1, counts[SeverityLow])
}

func TestDefaultFingerprint_NormalizesDescription(t *testing.T) {
	a := Finding{Severity: SeverityHigh, Location: "x", Description: "Unchecked   Error"}
	b := Finding{Severity: SeverityHigh, Location: "x", Description: "unchecked error"}
	c := Finding{Severity: SeverityLow, Location: "x", Description: "unchecked error"}

	assert.Equal(t, DefaultFingerprint(a), DefaultFingerprint(b))
	assert.NotEqual(t, DefaultFingerprint(a), DefaultFingerprint(c))
}

func TestMoreSevere(t *testing.T) {
	assert.True(t, MoreSevere(SeverityCritical, SeverityHigh))
	assert.True(t, MoreSevere(SeverityHigh, SeverityMedium))
	assert.True(t, MoreSevere(SeverityMedium, SeverityLow))
	assert.False(t, MoreSevere(SeverityLow, SeverityLow))
	assert.False(t, MoreSevere(SeverityLow, SeverityCritical))
}

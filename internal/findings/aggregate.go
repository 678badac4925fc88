package findings

import (
	"fmt"
	"sort"
)

const (
	// DefaultConfidenceThreshold is the minimum confidence a merged finding
	// needs to appear in the report.
	DefaultConfidenceThreshold = 80

	// failureConfidence is assigned to the synthetic finding that records a
	// failed task, low enough to stay out of default reports but present
	// for callers that lower the threshold.
	failureConfidence = 25
)

// Report is the consolidated output of one aggregation pass.
type Report struct {
	// Findings are the merged findings at or above the confidence
	// threshold, sorted by severity descending then confidence descending.
	// Consumers rely on most-important-first ordering.
	Findings []Finding `json:"findings"`

	// Incomplete lists tasks that timed out, so callers can tell a clean
	// result from one that simply did not finish.
	Incomplete []string `json:"incomplete,omitempty"`

	// Suppressed counts merged findings dropped by the threshold.
	Suppressed int `json:"suppressed,omitempty"`
}

// CountBySeverity tallies the reported findings per severity.
func (r Report) CountBySeverity() map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// Aggregator merges, deduplicates, and filters findings across results.
type Aggregator struct {
	// ConfidenceThreshold drops merged findings below it. Zero means
	// DefaultConfidenceThreshold.
	ConfidenceThreshold int

	// Fingerprint overrides the dedup identity function. Nil means
	// DefaultFingerprint.
	Fingerprint FingerprintFunc
}

// Aggregate flattens all findings from all results, merges duplicates by
// fingerprint (max confidence wins, sources are unioned), filters by the
// confidence threshold, and returns them most-important-first.
//
// A failed result is folded in as a low-confidence finding noting the
// incomplete analysis; a timed-out result contributes nothing but is listed
// in Report.Incomplete.
func (a Aggregator) Aggregate(results []Result) Report {
	threshold := a.ConfidenceThreshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	fingerprint := a.Fingerprint
	if fingerprint == nil {
		fingerprint = DefaultFingerprint
	}

	var report Report
	groups := make(map[string]Finding)
	order := make([]string, 0, len(results)) // first-seen fingerprints, for stable ties

	absorb := func(f Finding, source string) {
		if f.Fingerprint == "" {
			f.Fingerprint = fingerprint(f)
		}
		if source != "" {
			f.Sources = append(append([]string(nil), f.Sources...), source)
		}
		existing, ok := groups[f.Fingerprint]
		if !ok {
			f.Sources = dedupSorted(f.Sources)
			groups[f.Fingerprint] = f
			order = append(order, f.Fingerprint)
			return
		}
		merged := existing
		if f.Confidence > existing.Confidence {
			// Highest confidence supplies the representative content.
			merged = f
		}
		merged.Sources = dedupSorted(append(existing.Sources, f.Sources...))
		groups[f.Fingerprint] = merged
	}

	for _, r := range results {
		switch r.Status {
		case StatusTimeout:
			report.Incomplete = append(report.Incomplete, r.TaskID)
			continue
		case StatusFailure:
			absorb(Finding{
				Severity:    SeverityLow,
				Confidence:  failureConfidence,
				Description: fmt.Sprintf("analysis incomplete: task %s failed: %s", r.TaskID, r.Error),
				Location:    r.TaskID,
			}, r.TaskID)
		}
		for _, f := range r.Findings {
			absorb(f, r.TaskID)
		}
	}

	sort.Strings(report.Incomplete)

	merged := make([]Finding, 0, len(order))
	for _, fp := range order {
		f := groups[fp]
		if f.Confidence < threshold {
			report.Suppressed++
			continue
		}
		merged = append(merged, f)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if ar, br := severityRank(a.Severity), severityRank(b.Severity); ar != br {
			return ar > br
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Fingerprint < b.Fingerprint
	})

	report.Findings = merged
	return report
}

// dedupSorted returns the sorted union of the given IDs.
func dedupSorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

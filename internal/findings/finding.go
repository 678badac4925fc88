package findings

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRank orders severities for sorting and gate evaluation.
// Higher is more severe.
func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// MoreSevere reports whether a outranks b.
func MoreSevere(a, b Severity) bool {
	return severityRank(a) > severityRank(b)
}

// Finding is a single reportable issue discovered by a task.
//
// Once merged by the aggregator, findings are read-only and safe to share
// by reference with downstream consumers.
type Finding struct {
	// Fingerprint is the stable content identity used for deduplication.
	// When empty, the aggregator computes it with its FingerprintFunc.
	Fingerprint string `json:"fingerprint"`

	// Severity classifies the issue.
	Severity Severity `json:"severity"`

	// Confidence is the reporter's certainty, 0-100.
	Confidence int `json:"confidence"`

	// Description is the human-readable issue summary.
	Description string `json:"description"`

	// Location is an opaque reference (for example file:line) carried
	// through unmodified.
	Location string `json:"location,omitempty"`

	// Sources lists the task IDs that reported this finding. The
	// aggregator maintains it as a sorted union across duplicates.
	Sources []string `json:"sources,omitempty"`
}

// FingerprintFunc computes the dedup identity of a finding. The exact
// composition is configurable because different reporters describe the same
// underlying issue with different words.
type FingerprintFunc func(f Finding) string

// DefaultFingerprint hashes severity, location, and the normalized
// description. Two findings that agree on all three merge into one.
func DefaultFingerprint(f Finding) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", f.Severity, f.Location, normalize(f.Description))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// normalize lowercases and collapses runs of whitespace so cosmetic
// phrasing differences do not defeat deduplication.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

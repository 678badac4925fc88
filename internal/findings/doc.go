// Package findings holds the engine's reporting data model: the results
// executors hand back, the findings inside them, and the aggregator that
// consolidates findings across a run.
//
// Deduplication is fingerprint-based. Two findings with the same
// fingerprint merge into one, keeping the highest confidence and the union
// of source task IDs. The fingerprint function is configurable; the default
// hashes severity, location, and the normalized description.
package findings

// Package graph models a run's tasks and their dependencies as an
// immutable DAG.
//
// Construction is two-phase: a Builder collects tasks, then Finalize
// validates dependency references, proves the graph acyclic, and computes
// the derived state (topological order, depths). The resulting Graph is
// read-only and safe to share across dispatcher workers.
//
// Scheduling queries are pure functions over the finalized graph:
// ReadyTasks answers "what can run now" given a completed set, and
// CriticalPath reports the longest dependency chain, per-task slack, and
// which tasks can run in parallel.
package graph

// Package dispatch runs a finalized task graph through an executor with
// bounded parallelism.
//
// The dispatcher is a fan-out/fan-in loop: it launches every ready task the
// concurrency budget allows, blocks until any in-flight task finishes, then
// recomputes readiness and repeats. Start order follows topological
// readiness; completion order is unconstrained.
//
// Executors are opaque collaborators. A plain error from Execute is
// recovered into a failure result; a FatalTaskError aborts the remaining
// schedule while preserving the partial results.
package dispatch

// Package converge implements the bounded convergence loop: do work, check
// it, fix it, recheck it, at most N times.
//
// # State machine
//
//	Scheduling -> Evaluating -> {Done, Remediating, Escalated}
//
// Scheduling builds a fresh graph (the factory runs every iteration so
// remediation can change what gets scheduled next) and dispatches it.
// Evaluating aggregates findings and gates them. A pass terminates in Done.
// Otherwise the remediator runs and the loop schedules again, until the
// iteration budget is exhausted, remediation itself errors, the context is
// cancelled, or two consecutive iterations fail to shrink the unresolved
// critical/high finding count.
//
// Done and Escalated are both designed terminals. Escalation hands the
// problem to a human with the full iteration history; it is not an engine
// failure, and human input arriving later starts a new session rather than
// resuming this one.
package converge

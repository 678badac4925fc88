package graph

// Task is a unit of schedulable work with declared dependencies.
//
// Tasks are value objects: the graph copies them on AddTask and hands back
// copies from accessors, so a caller mutating its own Task after Finalize
// cannot affect a running schedule.
type Task struct {
	// ID uniquely identifies the task within one graph.
	ID string `json:"id"`

	// DependsOn lists the IDs of tasks that must complete first.
	DependsOn []string `json:"depends_on,omitempty"`

	// Weight is a duration/priority hint used by critical-path analysis.
	// Zero or negative weights are treated as 1.
	Weight int `json:"weight,omitempty"`

	// Track is an optional label naming the parallel lane this task is
	// intended to run in. It is carried through for reporting only and has
	// no scheduling effect.
	Track string `json:"track,omitempty"`

	// Payload describes the work to perform. The engine never inspects it;
	// it is passed verbatim to the Executor.
	Payload any `json:"payload,omitempty"`
}

// weight returns the effective CPM duration for the task.
func (t Task) weight() int {
	if t.Weight <= 0 {
		return 1
	}
	return t.Weight
}

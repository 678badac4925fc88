package graph

import "sort"

// Schedule holds the critical-path-method timing for one task.
//
// All figures are in task weight units (a task with no weight counts as 1).
type Schedule struct {
	// TaskID is the task this schedule belongs to.
	TaskID string `json:"task_id"`

	// EarliestStart and EarliestFinish come from the forward pass.
	EarliestStart  int `json:"earliest_start"`
	EarliestFinish int `json:"earliest_finish"`

	// LatestStart and LatestFinish come from the backward pass.
	LatestStart  int `json:"latest_start"`
	LatestFinish int `json:"latest_finish"`

	// Slack is how long the task can be delayed without extending the run.
	Slack int `json:"slack"`

	// Critical is true when the task has zero slack.
	Critical bool `json:"critical"`
}

// Analysis is the result of critical-path analysis over a finalized graph.
type Analysis struct {
	// Schedules maps task ID to its CPM timing.
	Schedules map[string]Schedule `json:"schedules"`

	// CriticalPath lists the zero-slack tasks in topological order.
	CriticalPath []string `json:"critical_path"`

	// TotalDuration is the weight of the longest dependency chain.
	TotalDuration int `json:"total_duration"`

	// Tracks groups task IDs by topological depth: every task in one track
	// has all its dependencies in earlier tracks, so tasks within a track
	// can run concurrently.
	Tracks [][]string `json:"tracks"`
}

// CriticalPath runs CPM analysis: a forward pass for earliest start/finish,
// a backward pass for latest start/finish, and slack derivation. Task
// weights are the durations; zero or negative weights count as 1.
func (g *Graph) CriticalPath() Analysis {
	schedules := make(map[string]*Schedule, len(g.tasks))
	for _, t := range g.tasks {
		schedules[t.ID] = &Schedule{TaskID: t.ID}
	}

	// Forward pass: ES = max(EF of dependencies), EF = ES + weight.
	for _, u := range g.topo {
		ts := schedules[g.tasks[u].ID]
		for _, p := range g.incoming[u] {
			if ef := schedules[g.tasks[p].ID].EarliestFinish; ef > ts.EarliestStart {
				ts.EarliestStart = ef
			}
		}
		ts.EarliestFinish = ts.EarliestStart + g.tasks[u].weight()
	}

	total := 0
	for _, ts := range schedules {
		if ts.EarliestFinish > total {
			total = ts.EarliestFinish
		}
	}

	// Backward pass in reverse topological order: LF = min(LS of
	// dependents), defaulting to the total duration for leaves.
	for i := len(g.topo) - 1; i >= 0; i-- {
		u := g.topo[i]
		ts := schedules[g.tasks[u].ID]
		lf := total
		for _, s := range g.outgoing[u] {
			if ls := schedules[g.tasks[s].ID].LatestStart; ls < lf {
				lf = ls
			}
		}
		ts.LatestFinish = lf
		ts.LatestStart = lf - g.tasks[u].weight()
		ts.Slack = ts.LatestStart - ts.EarliestStart
		ts.Critical = ts.Slack == 0
	}

	out := Analysis{
		Schedules:     make(map[string]Schedule, len(schedules)),
		TotalDuration: total,
		Tracks:        g.tracksByDepth(),
	}
	for _, u := range g.topo {
		id := g.tasks[u].ID
		out.Schedules[id] = *schedules[id]
		if schedules[id].Critical {
			out.CriticalPath = append(out.CriticalPath, id)
		}
	}
	return out
}

// tracksByDepth buckets task IDs by topological depth, each bucket sorted.
func (g *Graph) tracksByDepth() [][]string {
	maxDepth := 0
	for _, d := range g.depth {
		if d > maxDepth {
			maxDepth = d
		}
	}
	tracks := make([][]string, maxDepth+1)
	for i, t := range g.tasks {
		tracks[g.depth[i]] = append(tracks[g.depth[i]], t.ID)
	}
	for i := range tracks {
		sort.Strings(tracks[i])
	}
	return tracks
}

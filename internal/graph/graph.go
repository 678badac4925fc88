package graph

import (
	"container/heap"
	"sort"
)

// Builder accumulates tasks and produces an immutable Graph.
//
// Construction is two-phase: AddTask validates ID uniqueness eagerly, while
// dependency references and acyclicity are checked once at Finalize, so
// tasks may be added in any order regardless of their dependencies.
type Builder struct {
	tasks     map[string]Task
	order     []string // insertion order, for stable error reporting
	finalized bool
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{tasks: make(map[string]Task)}
}

// AddTask registers a task. It fails with a DuplicateIDError if the ID is
// already present and with ErrFinalized after Finalize has been called.
func (b *Builder) AddTask(task Task) error {
	if b.finalized {
		return ErrFinalized
	}
	if task.ID == "" {
		return ErrEmptyID
	}
	if _, exists := b.tasks[task.ID]; exists {
		return &DuplicateIDError{ID: task.ID}
	}
	// Copy the dependency slice so later caller mutation cannot leak in.
	task.DependsOn = append([]string(nil), task.DependsOn...)
	b.tasks[task.ID] = task
	b.order = append(b.order, task.ID)
	return nil
}

// Len returns the number of tasks added so far.
func (b *Builder) Len() int { return len(b.tasks) }

// Finalize validates dependency references, proves the graph acyclic, and
// returns the immutable Graph. The builder is unusable afterwards.
//
// Failure modes: UnknownDependencyError for a dangling reference,
// CycleError naming one witness cycle, ErrEmptyGraph for zero tasks.
func (b *Builder) Finalize() (*Graph, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	if len(b.tasks) == 0 {
		return nil, ErrEmptyGraph
	}

	for _, id := range b.order {
		for _, dep := range b.tasks[id].DependsOn {
			if _, ok := b.tasks[dep]; !ok {
				return nil, &UnknownDependencyError{TaskID: id, DependencyID: dep}
			}
		}
	}

	g := newGraph(b.tasks)
	if cycle := g.findCycle(); cycle != nil {
		return nil, &CycleError{Members: cycle}
	}
	g.topo = g.topoOrderIndices()
	g.depth = g.computeDepth()
	b.finalized = true
	return g, nil
}

// Graph is an immutable, validated task DAG.
//
// It is safe for concurrent read access; nothing mutates it after Finalize.
type Graph struct {
	tasks []Task         // canonical order (sorted by ID)
	index map[string]int // ID -> canonical index

	outgoing [][]int // dependents, by canonical index, sorted
	incoming [][]int // dependencies, by canonical index, sorted
	indeg    []int

	topo  []int // deterministic topological order of canonical indices
	depth []int // longest path from any root, by canonical index
}

func newGraph(tasks map[string]Task) *Graph {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	g := &Graph{
		tasks: make([]Task, 0, len(ids)),
		index: make(map[string]int, len(ids)),
	}
	for i, id := range ids {
		g.tasks = append(g.tasks, tasks[id])
		g.index[id] = i
	}

	g.outgoing = make([][]int, len(ids))
	g.incoming = make([][]int, len(ids))
	g.indeg = make([]int, len(ids))
	for i, t := range g.tasks {
		for _, dep := range t.DependsOn {
			from := g.index[dep]
			g.outgoing[from] = append(g.outgoing[from], i)
			g.incoming[i] = append(g.incoming[i], from)
			g.indeg[i]++
		}
	}
	for i := range g.outgoing {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}
	return g
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int { return len(g.tasks) }

// Task returns the task with the given ID.
func (g *Graph) Task(id string) (Task, bool) {
	i, ok := g.index[id]
	if !ok {
		return Task{}, false
	}
	return g.tasks[i], true
}

// Tasks returns all tasks in canonical (ID-sorted) order.
func (g *Graph) Tasks() []Task {
	out := make([]Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// TopologicalOrder returns a deterministic topological ordering of task IDs.
// The graph is validated at Finalize, so the full ordering always exists.
func (g *Graph) TopologicalOrder() []string {
	out := make([]string, 0, len(g.topo))
	for _, i := range g.topo {
		out = append(out, g.tasks[i].ID)
	}
	return out
}

// Depth returns the topological depth of a task: the length of the longest
// dependency chain leading to it. Roots have depth 0.
func (g *Graph) Depth(id string) (int, bool) {
	i, ok := g.index[id]
	if !ok {
		return 0, false
	}
	return g.depth[i], true
}

// ReadyTasks returns every task whose dependencies are all in completed and
// which is not itself in completed.
//
// The function is pure: it mutates neither the graph nor the completed set,
// so the dispatcher can call it repeatedly as completion grows. Ordering is
// deterministic: topological depth ascending, then ID ascending.
func (g *Graph) ReadyTasks(completed map[string]struct{}) []Task {
	ready := make([]Task, 0)
	for i, t := range g.tasks {
		if _, done := completed[t.ID]; done {
			continue
		}
		depsOK := true
		for _, p := range g.incoming[i] {
			if _, done := completed[g.tasks[p].ID]; !done {
				depsOK = false
				break
			}
		}
		if depsOK {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		ad := g.depth[g.index[a.ID]]
		bd := g.depth[g.index[b.ID]]
		if ad != bd {
			return ad < bd
		}
		return a.ID < b.ID
	})
	return ready
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrderIndices returns a deterministic topological ordering of canonical
// indices. Determinism: the ready queue is a min-heap by canonical index.
func (g *Graph) topoOrderIndices() []int {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

func (g *Graph) computeDepth() []int {
	depth := make([]int, len(g.tasks))
	for _, u := range g.topo {
		for _, p := range g.incoming[u] {
			if depth[p]+1 > depth[u] {
				depth[u] = depth[p] + 1
			}
		}
	}
	return depth
}

// findCycle performs a deterministic DFS over canonical indices and returns
// one cycle as task IDs in forward order (first ID repeated at the end), or
// nil if the graph is acyclic. It returns a single stable witness, not an
// enumeration of all cycles.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.tasks))
	parent := make([]int, len(g.tasks))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Back-edge u -> v closes the cycle. Walk parents from u
				// back to v to reconstruct it.
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < len(g.tasks); i++ {
		if color[i] == white && dfs(i) {
			break
		}
	}
	if len(cycle) == 0 {
		return nil
	}

	// The walk produced the cycle in reverse; flip it to forward order.
	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.tasks[cycle[i]].ID)
	}
	return out
}

package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGraph(t *testing.T, tasks ...Task) *Graph {
	t.Helper()
	b := NewBuilder()
	for _, task := range tasks {
		require.NoError(t, b.AddTask(task))
	}
	g, err := b.Finalize()
	require.NoError(t, err)
	return g
}

func TestBuilder_AddTask_DuplicateID(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "a"}))

	err := b.AddTask(Task{ID: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)

	var dup *DuplicateIDError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.ID)
}

func TestBuilder_AddTask_EmptyID(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.AddTask(Task{}), ErrEmptyID)
}

func TestBuilder_Finalize_UnknownDependency(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "a", DependsOn: []string{"ghost"}}))

	_, err := b.Finalize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownDependency)

	var unknown *UnknownDependencyError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "a", unknown.TaskID)
	assert.Equal(t, "ghost", unknown.DependencyID)
}

func TestBuilder_Finalize_Empty(t *testing.T) {
	_, err := NewBuilder().Finalize()
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestBuilder_Finalize_Twice(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "a"}))
	_, err := b.Finalize()
	require.NoError(t, err)

	assert.ErrorIs(t, b.AddTask(Task{ID: "b"}), ErrFinalized)
	_, err = b.Finalize()
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestBuilder_Finalize_CycleNamesMembers(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "a", DependsOn: []string{"c"}}))
	require.NoError(t, b.AddTask(Task{ID: "b", DependsOn: []string{"a"}}))
	require.NoError(t, b.AddTask(Task{ID: "c", DependsOn: []string{"b"}}))

	_, err := b.Finalize()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	// The witness closes on itself and names every member.
	require.GreaterOrEqual(t, len(cycle.Members), 4)
	assert.Equal(t, cycle.Members[0], cycle.Members[len(cycle.Members)-1])
	assert.Subset(t, cycle.Members, []string{"a", "b", "c"})
}

func TestBuilder_Finalize_SelfLoop(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "a", DependsOn: []string{"a"}}))

	_, err := b.Finalize()
	assert.ErrorIs(t, err, ErrCycle)
}

func TestGraph_TopologicalOrder_Deterministic(t *testing.T) {
	mk := func() *Graph {
		return buildGraph(t,
			Task{ID: "d", DependsOn: []string{"b", "c"}},
			Task{ID: "b", DependsOn: []string{"a"}},
			Task{ID: "c", DependsOn: []string{"a"}},
			Task{ID: "a"},
		)
	}
	first := mk().TopologicalOrder()
	assert.Equal(t, []string{"a", "b", "c", "d"}, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, mk().TopologicalOrder())
	}
}

func TestGraph_Depth(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "a"},
		Task{ID: "b", DependsOn: []string{"a"}},
		Task{ID: "c", DependsOn: []string{"a", "b"}},
	)

	for id, want := range map[string]int{"a": 0, "b": 1, "c": 2} {
		got, ok := g.Depth(id)
		require.True(t, ok)
		assert.Equal(t, want, got, "depth of %s", id)
	}

	_, ok := g.Depth("nope")
	assert.False(t, ok)
}

func TestGraph_ReadyTasks_Progression(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "a"},
		Task{ID: "b"},
		Task{ID: "c", DependsOn: []string{"a"}},
		Task{ID: "d", DependsOn: []string{"a", "b"}},
		Task{ID: "e", DependsOn: []string{"c", "d"}},
	)

	completed := map[string]struct{}{}
	seen := map[string]int{}

	// Drive the graph to completion one ready batch at a time; every task
	// must become ready exactly once.
	for len(completed) < g.Len() {
		ready := g.ReadyTasks(completed)
		require.NotEmpty(t, ready, "acyclic graph must always have ready tasks")
		for _, task := range ready {
			seen[task.ID]++
			completed[task.ID] = struct{}{}
		}
	}

	require.Len(t, seen, 5)
	for id, n := range seen {
		assert.Equal(t, 1, n, "task %s became ready more than once", id)
	}
}

func TestGraph_ReadyTasks_Pure(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "a"},
		Task{ID: "b", DependsOn: []string{"a"}},
	)

	completed := map[string]struct{}{}
	first := g.ReadyTasks(completed)
	second := g.ReadyTasks(completed)

	assert.Equal(t, first, second)
	assert.Empty(t, completed)
}

func TestGraph_ReadyTasks_Ordering(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "z"},
		Task{ID: "a"},
		Task{ID: "m"},
	)

	ready := g.ReadyTasks(nil)
	ids := make([]string, 0, len(ready))
	for _, task := range ready {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"a", "m", "z"}, ids)
}

func TestGraph_Task_CopySemantics(t *testing.T) {
	deps := []string{"a"}
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "a"}))
	require.NoError(t, b.AddTask(Task{ID: "b", DependsOn: deps}))

	// Mutating the caller's slice after AddTask must not corrupt the graph.
	deps[0] = "ghost"

	g, err := b.Finalize()
	require.NoError(t, err)

	task, ok := g.Task("b")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, task.DependsOn)
}

func TestGraph_CriticalPath_Chain(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "a", Weight: 2},
		Task{ID: "b", Weight: 3, DependsOn: []string{"a"}},
		Task{ID: "side", Weight: 1, DependsOn: []string{"a"}},
		Task{ID: "c", Weight: 1, DependsOn: []string{"b", "side"}},
	)

	analysis := g.CriticalPath()

	assert.Equal(t, 6, analysis.TotalDuration)
	assert.Equal(t, []string{"a", "b", "c"}, analysis.CriticalPath)

	side := analysis.Schedules["side"]
	assert.False(t, side.Critical)
	assert.Equal(t, 2, side.Slack)
}

func TestGraph_CriticalPath_DefaultWeight(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "a"},
		Task{ID: "b", DependsOn: []string{"a"}},
	)

	analysis := g.CriticalPath()
	assert.Equal(t, 2, analysis.TotalDuration)
}

func TestGraph_CriticalPath_Tracks(t *testing.T) {
	g := buildGraph(t,
		Task{ID: "a"},
		Task{ID: "b"},
		Task{ID: "c", DependsOn: []string{"a"}},
		Task{ID: "d", DependsOn: []string{"b"}},
		Task{ID: "e", DependsOn: []string{"c", "d"}},
	)

	analysis := g.CriticalPath()
	require.Len(t, analysis.Tracks, 3)
	assert.Equal(t, []string{"a", "b"}, analysis.Tracks[0])
	assert.Equal(t, []string{"c", "d"}, analysis.Tracks[1])
	assert.Equal(t, []string{"e"}, analysis.Tracks[2])
}

func TestGraph_Finalize_LargeAcyclic(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddTask(Task{ID: "t0"}))
	prev := "t0"
	for i := 1; i < 200; i++ {
		id := prev + "x" // strictly growing IDs keep the chain unambiguous
		require.NoError(t, b.AddTask(Task{ID: id, DependsOn: []string{prev}}))
		prev = id
	}

	g, err := b.Finalize()
	require.NoError(t, err)
	assert.Len(t, g.TopologicalOrder(), 200)
}

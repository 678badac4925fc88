// Package workflow loads YAML workflow definitions and compiles them into
// task graphs the engine can schedule. It also ships the command executor
// that runs workflow steps as subprocesses.
package workflow

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/convergd/internal/graph"
)

// Duration wraps time.Duration so YAML can spell timeouts as "90s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Step is one schedulable command in a workflow.
type Step struct {
	// ID uniquely names the step within the workflow.
	ID string `yaml:"id"`

	// Run is the command and its arguments. The command is executed
	// directly, not through a shell.
	Run []string `yaml:"run"`

	// DependsOn lists step IDs that must finish first.
	DependsOn []string `yaml:"depends_on,omitempty"`

	// Weight is the critical-path duration hint. Defaults to 1.
	Weight int `yaml:"weight,omitempty"`

	// Track labels the parallel lane for reporting.
	Track string `yaml:"track,omitempty"`

	// Timeout bounds the step's wall time. Zero uses the executor default.
	Timeout Duration `yaml:"timeout,omitempty"`

	// Env adds KEY=VALUE pairs to the step's environment.
	Env []string `yaml:"env,omitempty"`

	// Dir overrides the working directory for this step.
	Dir string `yaml:"dir,omitempty"`
}

// Definition is a parsed workflow file.
type Definition struct {
	// Name identifies the workflow in logs and reports.
	Name string `yaml:"name"`

	// Steps are the workflow's tasks. Order in the file carries no
	// scheduling meaning; dependencies do.
	Steps []Step `yaml:"steps"`

	// Remediate is an optional fix command run between iterations. The
	// unresolved findings arrive on its stdin as a JSON array. Without it
	// the workflow runs as a single-pass gate check.
	Remediate []string `yaml:"remediate,omitempty"`

	// RemediateTimeout bounds the fix command. Zero uses the default.
	RemediateTimeout Duration `yaml:"remediate_timeout,omitempty"`
}

// Normalized validates the definition and returns it.
func (d Definition) Normalized() (Definition, error) {
	if d.Name == "" {
		return Definition{}, fmt.Errorf("workflow: name is required")
	}
	if len(d.Steps) == 0 {
		return Definition{}, fmt.Errorf("workflow %q: at least one step is required", d.Name)
	}
	seen := make(map[string]struct{}, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			return Definition{}, fmt.Errorf("workflow %q: step %d has no id", d.Name, i)
		}
		if _, dup := seen[step.ID]; dup {
			return Definition{}, fmt.Errorf("workflow %q: duplicate step id %q", d.Name, step.ID)
		}
		seen[step.ID] = struct{}{}
		if len(step.Run) == 0 {
			return Definition{}, fmt.Errorf("workflow %q: step %q has no command", d.Name, step.ID)
		}
		if step.Timeout < 0 {
			return Definition{}, fmt.Errorf("workflow %q: step %q has negative timeout", d.Name, step.ID)
		}
	}
	return d, nil
}

// Graph compiles the definition into a finalized task graph. Each task
// carries its Step as the payload. Unknown dependencies and cycles surface
// as graph errors.
func (d Definition) Graph() (*graph.Graph, error) {
	b := graph.NewBuilder()
	for _, step := range d.Steps {
		task := graph.Task{
			ID:        step.ID,
			DependsOn: step.DependsOn,
			Weight:    step.Weight,
			Track:     step.Track,
			Payload:   step,
		}
		if err := b.AddTask(task); err != nil {
			return nil, fmt.Errorf("workflow %q: %w", d.Name, err)
		}
	}
	g, err := b.Finalize()
	if err != nil {
		return nil, fmt.Errorf("workflow %q: %w", d.Name, err)
	}
	return g, nil
}

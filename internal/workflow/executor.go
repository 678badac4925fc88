package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fyrsmithlabs/convergd/internal/findings"
	"github.com/fyrsmithlabs/convergd/internal/graph"
)

const (
	// DefaultStepTimeout bounds steps that declare no timeout of their own.
	DefaultStepTimeout = 5 * time.Minute

	// DefaultMaxOutputBytes caps how much step output is buffered.
	DefaultMaxOutputBytes = 4 * 1024 * 1024
)

// stepReport is the JSON document a step prints on stdout.
type stepReport struct {
	Findings []findings.Finding `json:"findings"`
}

// CommandExecutor runs workflow steps as subprocesses.
//
// A step reports findings by printing a JSON document with a top-level
// "findings" array to stdout. Empty output means a clean run. A non-zero
// exit is a recoverable failure; exceeding the step timeout is a timeout.
type CommandExecutor struct {
	// Dir is the default working directory. Steps may override it.
	Dir string

	// Env adds KEY=VALUE pairs on top of the parent environment for every
	// step.
	Env []string

	// DefaultTimeout applies to steps without their own timeout.
	// Zero means DefaultStepTimeout.
	DefaultTimeout time.Duration

	// MaxOutputBytes truncates step output beyond this size.
	// Zero means DefaultMaxOutputBytes.
	MaxOutputBytes int
}

// Execute runs the step carried in the task payload.
func (e *CommandExecutor) Execute(ctx context.Context, task graph.Task) (findings.Result, error) {
	step, ok := task.Payload.(Step)
	if !ok {
		return findings.Result{}, fmt.Errorf("task %q: payload is %T, want workflow.Step", task.ID, task.Payload)
	}

	timeout := time.Duration(step.Timeout)
	if timeout <= 0 {
		timeout = e.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, step.Run[0], step.Run[1:]...)
	cmd.Dir = step.Dir
	if cmd.Dir == "" {
		cmd.Dir = e.Dir
	}
	cmd.Env = append(os.Environ(), append(e.Env, step.Env...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if timeoutCtx.Err() == context.DeadlineExceeded {
		return findings.Result{
			TaskID: task.ID,
			Status: findings.StatusTimeout,
			Error:  fmt.Sprintf("step timed out after %v", timeout),
		}, nil
	}
	// Parent cancellation is not this step's fault; let the dispatcher
	// classify it.
	if err := ctx.Err(); err != nil {
		return findings.Result{}, err
	}

	output := e.truncate(stdout.Bytes())

	if runErr != nil {
		return findings.Result{
			TaskID:   task.ID,
			Status:   findings.StatusFailure,
			Error:    fmt.Sprintf("step failed: %v: %s", runErr, tail(stderr.Bytes())),
			Metadata: map[string]any{"exit_code": exitCode(runErr)},
		}, nil
	}

	parsed, err := parseFindings(output)
	if err != nil {
		return findings.Result{
			TaskID: task.ID,
			Status: findings.StatusFailure,
			Error:  fmt.Sprintf("unparseable step output: %v", err),
		}, nil
	}

	return findings.Result{
		TaskID:   task.ID,
		Status:   findings.StatusSuccess,
		Findings: parsed,
	}, nil
}

func (e *CommandExecutor) truncate(b []byte) []byte {
	limit := e.MaxOutputBytes
	if limit <= 0 {
		limit = DefaultMaxOutputBytes
	}
	if len(b) > limit {
		return b[:limit]
	}
	return b
}

// parseFindings decodes a step's stdout. Blank output is a clean run.
func parseFindings(output []byte) ([]findings.Finding, error) {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var report stepReport
	if err := json.Unmarshal(trimmed, &report); err != nil {
		return nil, err
	}
	return report.Findings, nil
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// tail keeps the last portion of stderr so failure messages stay readable.
func tail(b []byte) string {
	const keep = 512
	s := strings.TrimSpace(string(b))
	if len(s) > keep {
		return "..." + s[len(s)-keep:]
	}
	return s
}

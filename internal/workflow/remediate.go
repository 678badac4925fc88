package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fyrsmithlabs/convergd/internal/findings"
)

// DefaultRemediateTimeout bounds fix commands that declare no timeout.
const DefaultRemediateTimeout = 10 * time.Minute

// CommandRemediator runs a fix command between iterations. The unresolved
// findings are piped to the command's stdin as a JSON array; a non-zero exit
// fails remediation and escalates the session.
type CommandRemediator struct {
	// Run is the fix command and its arguments.
	Run []string

	// Dir is the working directory.
	Dir string

	// Env adds KEY=VALUE pairs to the command's environment.
	Env []string

	// Timeout bounds the command's wall time. Zero means
	// DefaultRemediateTimeout.
	Timeout time.Duration
}

// Remediate implements converge.Remediator.
func (r *CommandRemediator) Remediate(ctx context.Context, unresolved []findings.Finding) error {
	if len(r.Run) == 0 {
		return fmt.Errorf("remediate: no command configured")
	}

	payload, err := json.Marshal(unresolved)
	if err != nil {
		return fmt.Errorf("remediate: encode findings: %w", err)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRemediateTimeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, r.Run[0], r.Run[1:]...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdin = bytes.NewReader(payload)

	output, err := cmd.CombinedOutput()
	if timeoutCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("remediate: timed out after %v", timeout)
	}
	if err != nil {
		return fmt.Errorf("remediate: %w: %s", err, tail(output))
	}
	return nil
}

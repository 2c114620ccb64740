// Package system adapts the host: process execution, systemd control,
// filesystem primitives with rollback bookkeeping, and the podman secret
// store. The process, systemd and secret-store adapters take a
// context.Context for cancellation and timeout; the filesystem primitives
// do not.
package system

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/aryonoco/divban/internal/errs"
)

// RunResult carries a completed process's captured output.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// DefaultTimeout bounds short commands (systemctl, podman secret); callers
// running long operations (database dumps and restores) pass their own.
const DefaultTimeout = 30 * time.Second

// RunOptions configures Run. Commands always execute as the current
// process's own identity: rootless operation expects the caller to already
// be the user whose systemd manager and secret store are targeted, and no
// privilege elevation is ever attempted.
type RunOptions struct {
	Command string
	Args    []string
	Stdin   []byte
	Timeout time.Duration
	Env     []string
	Stream  bool // write output to the process's own stdout/stderr instead of capturing (journalctl --follow)
}

// Runner executes host commands. Production code uses ExecRunner; tests
// substitute a fake.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (RunResult, error)
}

// ExecRunner runs commands via os/exec, the primitive every shellout in
// this package builds on.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	if opts.Stream {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	runErr := cmd.Run()
	result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		return result, errs.Wrap(errs.System, "COMMAND_FAILED", fmt.Sprintf("%s %v", opts.Command, opts.Args), runErr).WithContext(result.Stderr)
	}
	return result, nil
}

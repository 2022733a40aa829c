package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yegors/streamscribe/pkg/logger"
)

// Result holds the captured output of a completed invocation
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Ok reports whether the process exited with status zero
func (r *Result) Ok() bool {
	return r.ExitCode == 0
}

// Runner executes external commands with a typed argument list and captures
// both output channels plus the exit status. Commands are never routed
// through a shell.
type Runner interface {
	Run(ctx context.Context, name string, args []string) (*Result, error)
	Start(name string, args []string) (*Handle, error)
}

// ExecRunner is the os/exec backed Runner
type ExecRunner struct {
	logger *logger.Logger
}

// NewExecRunner creates a new exec-backed runner
func NewExecRunner(log *logger.Logger) *ExecRunner {
	return &ExecRunner{
		logger: log.Named("proc"),
	}
}

// Run executes the command and blocks until it exits or the context is
// cancelled. A non-zero exit status is not an error: it is reported through
// Result.ExitCode so callers can attach their own meaning to it. An error is
// returned only when the process could not be run at all or the context was
// cancelled while it ran.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("Running command",
		logger.String("name", name),
		logger.String("args", strings.Join(args, " ")),
	)

	err := cmd.Run()

	result := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err != nil {
		// Context cancellation takes precedence: the process was killed,
		// not failed on its own terms
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("command %s cancelled: %w", name, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return result, nil
}

// Start launches the command without waiting for it and returns a Handle for
// termination signaling and liveness checks.
func (r *ExecRunner) Start(name string, args []string) (*Handle, error) {
	cmd := exec.Command(name, args...)

	r.logger.Debug("Starting command",
		logger.String("name", name),
		logger.String("args", strings.Join(args, " ")),
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	return newHandle(cmd, r.logger), nil
}

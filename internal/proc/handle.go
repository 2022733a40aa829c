package proc

import (
	"os/exec"
	"sync"
	"syscall"

	"github.com/yegors/streamscribe/pkg/logger"
)

// Handle is a weak reference to a long-running external process. It grants
// the right to request termination and to observe liveness; the OS process
// table remains the owner of the process itself.
type Handle struct {
	cmd      *exec.Cmd
	termOnce sync.Once
	done     chan struct{}
	waitErr  error
	logger   *logger.Logger
}

func newHandle(cmd *exec.Cmd, log *logger.Logger) *Handle {
	h := &Handle{
		cmd:    cmd,
		done:   make(chan struct{}),
		logger: log,
	}

	// Reap the process as soon as it exits, whether or not Terminate is
	// ever called
	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	return h
}

// Terminate requests termination of the process. The signal is delivered at
// most once no matter how many times Terminate is called; subsequent calls
// are no-ops.
func (h *Handle) Terminate() {
	h.termOnce.Do(func() {
		h.logger.Debug("Terminating process", logger.Int("pid", h.cmd.Process.Pid))

		if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			// Already gone, or signal delivery failed; escalate to Kill
			// so nothing is left behind
			if killErr := h.cmd.Process.Kill(); killErr != nil {
				h.logger.Debug("Process already exited", logger.Error(killErr))
			}
		}
	})
}

// Done returns a channel closed when the process has exited and been reaped
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Alive reports whether the process is still running
func (h *Handle) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// ExitCode returns the process exit code. Valid only after Done is closed;
// -1 is returned for a signal-terminated process.
func (h *Handle) ExitCode() int {
	select {
	case <-h.done:
	default:
		return -1
	}
	if h.waitErr == nil {
		return 0
	}
	if h.cmd.ProcessState == nil {
		return -1
	}
	return h.cmd.ProcessState.ExitCode()
}

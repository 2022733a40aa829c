package whisper

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/streamscribe/internal/proc"
	"github.com/yegors/streamscribe/pkg/logger"
)

// InvocationError reports a failed or misbehaving engine invocation
type InvocationError struct {
	Cause error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("whisper invocation failed: %v", e.Cause)
}

func (e *InvocationError) Unwrap() error {
	return e.Cause
}

// Config holds the settings for invoking the whisper.cpp engine
type Config struct {
	RootPath   string // whisper.cpp installation root
	Model      string // model identifier, e.g. "small"
	Language   string // target language code
	Threads    int
	Timeout    time.Duration // 0 = no deadline
	JSONOutput bool          // structured (JSON) vs plain-text output
}

// BinaryPath returns the whisper-cli location under the installation root
func (c Config) BinaryPath() string {
	return filepath.Join(c.RootPath, "build", "bin", "whisper-cli")
}

// ModelPath maps the model identifier to its model file
func (c Config) ModelPath() string {
	return filepath.Join(c.RootPath, "models", fmt.Sprintf("ggml-%s.bin", c.Model))
}

// Output is the raw engine output for one segment: both channels plus the
// knowledge that the engine exited cleanly (a non-zero exit never produces
// an Output).
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Invoker synchronously hands one segment artifact to the external
// transcription engine. The call can block for a duration comparable to or
// exceeding the segment length; the configured timeout is the only bound.
type Invoker struct {
	runner proc.Runner
	config Config
	logger *logger.Logger
}

// NewInvoker creates a new engine invoker
func NewInvoker(runner proc.Runner, config Config, log *logger.Logger) *Invoker {
	return &Invoker{
		runner: runner,
		config: config,
		logger: log.Named("whisper"),
	}
}

// Transcribe runs the engine on the given audio file and captures its full
// output. Failures (non-zero exit, deadline exceeded, unreachable binary)
// are reported, never retried here.
func (inv *Invoker) Transcribe(ctx context.Context, audioPath string) (*Output, error) {
	if inv.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.config.Timeout)
		defer cancel()
	}

	args := inv.invokeArgs(audioPath)

	inv.logger.Debug("Invoking transcription engine",
		logger.String("audio", audioPath),
		logger.String("model", inv.config.Model),
		logger.String("language", inv.config.Language),
	)

	start := time.Now()
	result, err := inv.runner.Run(ctx, inv.config.BinaryPath(), args)
	if err != nil {
		return nil, &InvocationError{Cause: err}
	}

	// The engine writes progress and model-load chatter to stderr; surface
	// it on the diagnostic channel without ever mixing it into results
	if diag := strings.TrimSpace(string(result.Stderr)); diag != "" {
		inv.logger.Debug("Engine diagnostics", logger.String("stderr", diag))
	}

	if !result.Ok() {
		return nil, &InvocationError{
			Cause: fmt.Errorf("engine exited with status %d: %s",
				result.ExitCode, strings.TrimSpace(string(result.Stderr))),
		}
	}

	inv.logger.Debug("Engine invocation complete",
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("stdout_bytes", len(result.Stdout)),
	)

	return &Output{Stdout: result.Stdout, Stderr: result.Stderr}, nil
}

// invokeArgs builds the whisper-cli argument list for one artifact
func (inv *Invoker) invokeArgs(audioPath string) []string {
	args := []string{
		"-t", strconv.Itoa(inv.config.Threads),
		"-m", inv.config.ModelPath(),
		"-f", audioPath,
		"--language", inv.config.Language,
	}
	if inv.config.JSONOutput {
		args = append(args, "-poai")
	} else {
		args = append(args, "--no-timestamps", "-otxt")
	}
	return args
}

package capture

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yegors/streamscribe/internal/proc"
	"github.com/yegors/streamscribe/pkg/logger"
)

// How long Stop waits for the capture process to exit after signaling it
const stopWait = 5 * time.Second

// StartError indicates the capture process could not be launched. This is
// the only fatal error in the pipeline: without capture there is no session.
type StartError struct {
	Cause error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start capture process: %v", e.Cause)
}

func (e *StartError) Unwrap() error {
	return e.Cause
}

// Supervisor owns the lifecycle of the long-running capture process that
// continuously decodes the source stream into the live sink file. It signals
// termination exactly once when the session ends and never restarts a process
// that dies on its own: an independent death shows up downstream as
// extraction failures and is handled there.
type Supervisor struct {
	runner      proc.Runner
	ffmpegPath  string
	sampleRate  int
	channels    int
	codec       string
	sinkPath    string
	maxDuration time.Duration // 0 = unbounded
	handle      *proc.Handle
	logger      *logger.Logger
}

// NewSupervisor creates a new capture supervisor writing to sinkPath
func NewSupervisor(
	runner proc.Runner,
	ffmpegPath string,
	sampleRate int,
	channels int,
	codec string,
	sinkPath string,
	maxDuration time.Duration,
	log *logger.Logger,
) *Supervisor {
	return &Supervisor{
		runner:      runner,
		ffmpegPath:  ffmpegPath,
		sampleRate:  sampleRate,
		channels:    channels,
		codec:       codec,
		sinkPath:    sinkPath,
		maxDuration: maxDuration,
		logger:      log.Named("capture"),
	}
}

// Start launches the capture process for the given stream URL. The process
// may not be producing data yet when Start returns; the caller is expected
// to allow buffering time before reading the sink.
func (s *Supervisor) Start(url string) error {
	args := s.captureArgs(url)

	s.logger.Info("Starting capture process",
		logger.String("url", url),
		logger.String("sink", s.sinkPath),
	)

	handle, err := s.runner.Start(s.ffmpegPath, args)
	if err != nil {
		return &StartError{Cause: err}
	}

	s.handle = handle
	return nil
}

// Stop requests termination of the capture process and waits briefly for it
// to exit. Safe to call multiple times and before Start; the termination
// signal is delivered at most once.
func (s *Supervisor) Stop() {
	if s.handle == nil {
		return
	}

	s.handle.Terminate()

	select {
	case <-s.handle.Done():
		s.logger.Debug("Capture process exited",
			logger.Int("exit_code", s.handle.ExitCode()))
	case <-time.After(stopWait):
		s.logger.Warn("Capture process did not exit after termination signal")
	}
}

// Alive reports whether the capture process is still running
func (s *Supervisor) Alive() bool {
	return s.handle != nil && s.handle.Alive()
}

// captureArgs builds the ffmpeg argument list for live capture
func (s *Supervisor) captureArgs(url string) []string {
	args := []string{
		"-loglevel", "quiet",
		"-y",
		"-re",
		"-probesize", "32",
		"-i", url,
		"-ar", strconv.Itoa(s.sampleRate),
		"-ac", strconv.Itoa(s.channels),
		"-c:a", s.codec,
		s.sinkPath,
	}
	if s.maxDuration > 0 {
		args = append(args, "-t", strconv.Itoa(int(s.maxDuration.Seconds())))
	}
	return args
}

package segment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/streamscribe/internal/audio"
	"github.com/yegors/streamscribe/internal/proc"
	"github.com/yegors/streamscribe/pkg/logger"
)

// Shortfall tolerated before an artifact is considered incomplete. ffmpeg
// seeks on frame boundaries, so extracted segments can come up a few
// milliseconds short of the requested duration.
const durationTolerance = 250 * time.Millisecond

// ExtractionError reports a failed segment extraction
type ExtractionError struct {
	Window Window
	Cause  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract segment %d [%s, %s): %v",
		e.Window.Index, e.Window.Start, e.Window.End(), e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Extractor produces bounded segment artifacts from the continuously-growing
// live capture sink. It performs no retries; retry/skip policy belongs to the
// caller.
type Extractor struct {
	runner      proc.Runner
	ffmpegPath  string
	sampleRate  int
	channels    int
	codec       string
	livePath    string
	segmentPath string
	logger      *logger.Logger
}

// NewExtractor creates a new segment extractor reading from livePath and
// writing each artifact to segmentPath
func NewExtractor(
	runner proc.Runner,
	ffmpegPath string,
	sampleRate int,
	channels int,
	codec string,
	livePath string,
	segmentPath string,
	log *logger.Logger,
) *Extractor {
	return &Extractor{
		runner:      runner,
		ffmpegPath:  ffmpegPath,
		sampleRate:  sampleRate,
		channels:    channels,
		codec:       codec,
		livePath:    livePath,
		segmentPath: segmentPath,
		logger:      log.Named("extractor"),
	}
}

// Extract materializes the artifact for the given window and returns its
// path. The artifact is fully written and closed before Extract returns: the
// extraction tool has exited and the on-disk file has been verified to cover
// the whole window. A window whose audio has not yet accumulated in the live
// sink is an error, never a silently short artifact.
func (e *Extractor) Extract(ctx context.Context, w Window) (string, error) {
	args := e.extractArgs(w)

	e.logger.Debug("Extracting segment",
		logger.Int("index", w.Index),
		logger.Duration("start", w.Start),
		logger.Duration("duration", w.Duration),
	)

	result, err := e.runner.Run(ctx, e.ffmpegPath, args)
	if err != nil {
		return "", &ExtractionError{Window: w, Cause: err}
	}
	if !result.Ok() {
		return "", &ExtractionError{
			Window: w,
			Cause: fmt.Errorf("ffmpeg exited with status %d: %s",
				result.ExitCode, strings.TrimSpace(string(result.Stderr))),
		}
	}

	// Reject an artifact that covers less than the requested window: the
	// capture is lagging and the tail of the window does not exist yet
	info, err := audio.ReadInfo(e.segmentPath)
	if err != nil {
		return "", &ExtractionError{Window: w, Cause: err}
	}
	if got := info.Duration(); got+durationTolerance < w.Duration {
		return "", &ExtractionError{
			Window: w,
			Cause:  fmt.Errorf("window not yet fully captured: got %s of %s", got, w.Duration),
		}
	}

	return e.segmentPath, nil
}

// extractArgs builds the ffmpeg argument list for one window
func (e *Extractor) extractArgs(w Window) []string {
	return []string{
		"-loglevel", "quiet",
		"-v", "error",
		"-noaccurate_seek",
		"-i", e.livePath,
		"-y",
		"-ar", strconv.Itoa(e.sampleRate),
		"-ac", strconv.Itoa(e.channels),
		"-c:a", e.codec,
		"-ss", formatSeconds(w.Start),
		"-t", formatSeconds(w.Duration),
		e.segmentPath,
	}
}

// formatSeconds renders a duration as a plain seconds value for ffmpeg
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

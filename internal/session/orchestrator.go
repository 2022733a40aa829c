package session

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yegors/streamscribe/internal/segment"
	"github.com/yegors/streamscribe/internal/whisper"
	"github.com/yegors/streamscribe/pkg/logger"
)

// Extractor produces a bounded segment artifact for a window and returns its
// path
type Extractor interface {
	Extract(ctx context.Context, w segment.Window) (string, error)
}

// Transcriber invokes the external engine on one segment artifact
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*whisper.Output, error)
}

// Capture supervises the long-running capture process feeding the live sink
type Capture interface {
	Start(url string) error
	Stop()
}

// Orchestrator drives the transcription loop: it advances the segment clock,
// triggers extraction and transcription, routes records to the sinks and owns
// the lifecycle of the capture process and all scratch artifacts. The loop is
// single-threaded: segment i completes before segment i+1 begins, so records
// leave in strictly increasing index order and at most one artifact exists at
// a time.
type Orchestrator struct {
	id           string
	url          string
	structured   bool
	clock        *segment.Clock
	capture      Capture
	extractor    Extractor
	transcriber  Transcriber
	sinks        []Sink
	scratchPaths []string
	logger       *logger.Logger

	mu        sync.RWMutex
	state     State
	records   []*TranscriptionRecord
	startedAt time.Time

	// Overridable in tests
	sleep  func(ctx context.Context, d time.Duration) error
	remove func(path string) error
}

// New creates a new stream orchestrator
func New(
	url string,
	structured bool,
	clock *segment.Clock,
	capture Capture,
	extractor Extractor,
	transcriber Transcriber,
	scratchPaths []string,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		id:           uuid.NewString(),
		url:          url,
		structured:   structured,
		clock:        clock,
		capture:      capture,
		extractor:    extractor,
		transcriber:  transcriber,
		scratchPaths: scratchPaths,
		logger:       log.Named("session"),
		state:        StateStarting,
		sleep:        sleepContext,
		remove:       os.Remove,
	}
}

// AddSink registers a sink. Must be called before Run.
func (o *Orchestrator) AddSink(sink Sink) {
	o.sinks = append(o.sinks, sink)
}

// ID returns the session identifier
func (o *Orchestrator) ID() string {
	return o.id
}

// URL returns the session's stream locator
func (o *Orchestrator) URL() string {
	return o.url
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// StartedAt returns when Run was entered
func (o *Orchestrator) StartedAt() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.startedAt
}

// Records returns a snapshot of the output sequence so far
func (o *Orchestrator) Records() []*TranscriptionRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*TranscriptionRecord, len(o.records))
	copy(out, o.records)
	return out
}

// Run executes the session until the duration bound is reached, the context
// is cancelled, or the pipeline fails. Extraction and invocation failures are
// treated as end-of-stream and stop the session gracefully; the only error
// Run returns is a capture start failure.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	o.startedAt = time.Now().UTC()
	o.mu.Unlock()

	o.logger.Info("Starting stream session",
		logger.String("session_id", o.id),
		logger.String("url", o.url),
		logger.Duration("step", o.clock.Step()),
		logger.Bool("structured", o.structured),
	)

	if err := o.capture.Start(o.url); err != nil {
		o.logger.Error("Capture process failed to start", logger.Error(err))
		o.setState(StateAborted)
		o.cleanup()
		return err
	}

	// Let the capture sink accumulate enough data for the first window
	o.setState(StateBuffering)
	o.logger.Info("Buffering audio")
	if err := o.sleep(ctx, o.clock.Step()); err != nil {
		o.stop()
		return nil
	}

	o.setState(StateRunning)

	for i := 0; ; i++ {
		if o.clock.Exhausted(i) {
			o.logger.Info("Max duration reached, stopping stream")
			break
		}
		if ctx.Err() != nil {
			o.logger.Info("Stop requested, stopping stream")
			break
		}

		rec, err := o.processSegment(ctx, o.clock.Window(i))
		if rec != nil {
			o.emit(rec)
		}
		if err != nil {
			break
		}

		// Suspend until the next clock boundary
		if err := o.sleep(ctx, o.clock.Step()); err != nil {
			o.logger.Info("Stop requested, stopping stream")
			break
		}
	}

	o.stop()
	return nil
}

// processSegment runs extraction, transcription and parsing for one window.
// A non-nil error means the session must stop; a record is returned for every
// segment that reached the engine, whatever its status.
func (o *Orchestrator) processSegment(ctx context.Context, w segment.Window) (*TranscriptionRecord, error) {
	artifact, err := o.extractor.Extract(ctx, w)
	if err != nil {
		// Persistent extraction failure is indistinguishable from end of
		// stream, so it is treated as one
		o.logger.Error("Segment extraction failed, treating as end of stream",
			logger.Int("index", w.Index),
			logger.Error(err))
		return nil, err
	}
	defer o.removeArtifact(artifact)

	output, err := o.transcriber.Transcribe(ctx, artifact)
	if err != nil {
		o.logger.Error("Transcription invocation failed, treating as end of stream",
			logger.Int("index", w.Index),
			logger.Error(err))
		return &TranscriptionRecord{
			Index:     w.Index,
			Status:    StatusInvocationError,
			CreatedAt: time.Now().UTC(),
		}, err
	}

	result, err := whisper.Parse(output, o.structured)
	if err != nil {
		// A bad parse degrades the record but never stops the loop
		var parseErr *whisper.ParseError
		raw := ""
		if errors.As(err, &parseErr) {
			raw = parseErr.Raw
		}
		o.logger.Warn("Failed to parse engine output",
			logger.Int("index", w.Index),
			logger.String("raw", raw),
			logger.Error(err))
		return &TranscriptionRecord{
			Index:     w.Index,
			Status:    StatusParseError,
			Raw:       raw,
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	return &TranscriptionRecord{
		Index:     w.Index,
		Status:    StatusOK,
		Text:      result.Text,
		Result:    result.JSON,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// emit appends the record to the output sequence and streams it to all sinks
func (o *Orchestrator) emit(rec *TranscriptionRecord) {
	o.mu.Lock()
	o.records = append(o.records, rec)
	o.mu.Unlock()

	for _, sink := range o.sinks {
		if err := sink.Emit(rec); err != nil {
			o.logger.Error("Failed to emit record",
				logger.Int("index", rec.Index),
				logger.Error(err))
		}
	}
}

// stop runs the STOPPING cleanup and marks the session terminated
func (o *Orchestrator) stop() {
	o.setState(StateStopping)
	o.cleanup()
	o.setState(StateTerminated)

	o.logger.Info("Session terminated",
		logger.String("session_id", o.id),
		logger.Int("records", len(o.Records())),
	)
}

// cleanup terminates the capture process and deletes all scratch artifacts.
// Runs on every exit path, including abort at capture start.
func (o *Orchestrator) cleanup() {
	o.capture.Stop()

	for _, path := range o.scratchPaths {
		if err := o.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			o.logger.Warn("Failed to remove scratch file",
				logger.String("path", path),
				logger.Error(err))
		}
	}
}

// removeArtifact deletes a processed segment artifact
func (o *Orchestrator) removeArtifact(path string) {
	if err := o.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.logger.Warn("Failed to remove segment artifact",
			logger.String("path", path),
			logger.Error(err))
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()

	o.logger.Debug("Session state changed", logger.String("state", s.String()))
}

// sleepContext sleeps for d unless the context is cancelled first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

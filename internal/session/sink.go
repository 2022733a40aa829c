package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/yegors/streamscribe/internal/storage/sqlite"
	"github.com/yegors/streamscribe/pkg/logger"
)

// Sink consumes transcription records as they are emitted. Records arrive
// one at a time, in sequence order, while the session runs.
type Sink interface {
	Emit(rec *TranscriptionRecord) error
}

// WriterSink writes records to the primary output stream
type WriterSink struct {
	w          io.Writer
	structured bool
}

// NewWriterSink creates a sink writing to w. In structured mode each record
// is one pretty-printed JSON object; otherwise one plain line per segment.
func NewWriterSink(w io.Writer, structured bool) *WriterSink {
	return &WriterSink{
		w:          w,
		structured: structured,
	}
}

// Emit writes one record
func (s *WriterSink) Emit(rec *TranscriptionRecord) error {
	if !s.structured {
		if rec.Status == StatusOK {
			_, err := fmt.Fprintln(s.w, rec.Text)
			return err
		}
		_, err := fmt.Fprintf(s.w, "[%s] segment %d\n", rec.Status, rec.Index)
		return err
	}

	// Re-indent the engine's own JSON rather than re-encoding it, so
	// non-ASCII text passes through verbatim
	if rec.Status == StatusOK && len(rec.Result) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, rec.Result, "", "  "); err != nil {
			return fmt.Errorf("failed to indent engine output: %w", err)
		}
		buf.WriteByte('\n')
		_, err := s.w.Write(buf.Bytes())
		return err
	}

	// Degraded records are emitted as explicitly marked objects
	enc := json.NewEncoder(s.w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}

// StorageSink persists records to SQLite. Persistence failures are logged
// and swallowed: storage must never stop the session.
type StorageSink struct {
	storage   *sqlite.TranscriptionStorage
	sessionID string
	logger    *logger.Logger
}

// NewStorageSink creates a sink persisting records under the given session ID
func NewStorageSink(storage *sqlite.TranscriptionStorage, sessionID string, log *logger.Logger) *StorageSink {
	return &StorageSink{
		storage:   storage,
		sessionID: sessionID,
		logger:    log.Named("storage-sink"),
	}
}

// Emit persists one record
func (s *StorageSink) Emit(rec *TranscriptionRecord) error {
	raw := rec.Raw
	if raw == "" && len(rec.Result) > 0 {
		raw = string(rec.Result)
	}

	_, err := s.storage.StoreRecord(&sqlite.TranscriptionRow{
		SessionID: s.sessionID,
		Seq:       rec.Index,
		Status:    rec.Status,
		Text:      rec.Text,
		Raw:       raw,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		s.logger.Error("Failed to persist transcription record",
			logger.Int("index", rec.Index),
			logger.Error(err))
	}
	return nil
}

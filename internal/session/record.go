package session

import (
	"encoding/json"
	"time"
)

// Record status values
const (
	StatusOK              = "ok"
	StatusParseError      = "parse_error"
	StatusInvocationError = "invocation_error"
)

// TranscriptionRecord is the canonical result for one attempted segment.
// Records are immutable once produced and appended to the session's output
// sequence in strictly increasing index order.
type TranscriptionRecord struct {
	Index  int    `json:"index"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	// Raw preserves the offending engine output when Status is parse_error
	Raw string `json:"raw,omitempty"`
	// Result holds the engine's structured output verbatim when available
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

package sqlite

import "time"

// TranscriptionRow represents one persisted transcription record
type TranscriptionRow struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Status    string    `json:"status"` // "ok", "parse_error", "invocation_error"
	Text      string    `json:"text"`
	Raw       string    `json:"raw,omitempty"` // engine JSON or offending output
	CreatedAt time.Time `json:"created_at"`
}

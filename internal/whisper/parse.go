package whisper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyOutput indicates the engine produced no usable output
var ErrEmptyOutput = errors.New("engine produced no output")

// ParseError reports engine output that could not be interpreted. The raw
// offending text is preserved so the failure can be diagnosed after the fact.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse engine output: %v", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Result is the canonical transcription for one segment
type Result struct {
	Text string
	// JSON holds the engine's structured output verbatim; nil in plain-text
	// mode
	JSON json.RawMessage
}

// Parse normalizes raw engine output into a Result. In structured mode the
// primary channel carries one JSON object per segment; in plain-text mode it
// carries progress lines followed by the transcription, so only the last
// non-empty line is authoritative. Diagnostic-channel content never reaches
// the parser.
func Parse(output *Output, structured bool) (*Result, error) {
	if structured {
		return parseStructured(output.Stdout)
	}
	return parsePlainText(output.Stdout)
}

func parseStructured(stdout []byte) (*Result, error) {
	raw := bytes.TrimSpace(stdout)
	if len(raw) == 0 {
		return nil, &ParseError{Cause: ErrEmptyOutput}
	}

	var fields struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &ParseError{Raw: string(raw), Cause: err}
	}

	return &Result{
		Text: strings.TrimSpace(fields.Text),
		JSON: json.RawMessage(raw),
	}, nil
}

func parsePlainText(stdout []byte) (*Result, error) {
	lines := strings.Split(string(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return &Result{Text: line}, nil
		}
	}
	return nil, &ParseError{Cause: ErrEmptyOutput}
}

package whisper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStructured(t *testing.T) {
	out := &Output{Stdout: []byte(`{"text": "hola"}`)}

	result, err := Parse(out, true)
	require.NoError(t, err)

	assert.Equal(t, "hola", result.Text)
	assert.JSONEq(t, `{"text": "hola"}`, string(result.JSON))
}

func TestParseStructuredMalformed(t *testing.T) {
	out := &Output{Stdout: []byte(`{"text": `)}

	result, err := Parse(out, true)
	require.Error(t, err)
	assert.Nil(t, result)

	// The raw offending text is preserved for diagnostics
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, `{"text":`, parseErr.Raw)
}

func TestParseStructuredEmpty(t *testing.T) {
	for _, stdout := range [][]byte{nil, []byte(""), []byte("\n\n  \n")} {
		_, err := Parse(&Output{Stdout: stdout}, true)
		assert.ErrorIs(t, err, ErrEmptyOutput)
	}
}

func TestParseStructuredPreservesNonASCII(t *testing.T) {
	out := &Output{Stdout: []byte(`{"text": "привет мир"}`)}

	result, err := Parse(out, true)
	require.NoError(t, err)

	assert.Equal(t, "привет мир", result.Text)
	assert.Contains(t, string(result.JSON), "привет мир")
}

func TestParsePlainTextLastLineWins(t *testing.T) {
	out := &Output{Stdout: []byte("loading model...\nprocessing...\nhello world")}

	result, err := Parse(out, false)
	require.NoError(t, err)

	assert.Equal(t, "hello world", result.Text)
	assert.Nil(t, result.JSON)
}

func TestParsePlainTextTrailingNewlines(t *testing.T) {
	out := &Output{Stdout: []byte("progress line\nfinal text\n\n")}

	result, err := Parse(out, false)
	require.NoError(t, err)

	assert.Equal(t, "final text", result.Text)
}

func TestParsePlainTextEmpty(t *testing.T) {
	for _, stdout := range [][]byte{nil, []byte(""), []byte("\n \n\t\n")} {
		_, err := Parse(&Output{Stdout: stdout}, false)

		var parseErr *ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.ErrorIs(t, err, ErrEmptyOutput)
	}
}

package segment

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/streamscribe/internal/proc"
	"github.com/yegors/streamscribe/pkg/logger"
)

// wavRunner stands in for ffmpeg: each Run writes a PCM WAV of the given
// duration to the output path (the last argument).
type wavRunner struct {
	duration time.Duration
}

func (r *wavRunner) Run(ctx context.Context, name string, args []string) (*proc.Result, error) {
	var buf bytes.Buffer
	dataBytes := int(r.duration.Seconds() * 16000 * 2)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataBytes)) //nolint:errcheck
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) //nolint:errcheck
	binary.Write(&buf, binary.LittleEndian, struct {    //nolint:errcheck
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{1, 1, 16000, 32000, 2, 16})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataBytes)) //nolint:errcheck
	buf.Write(make([]byte, dataBytes))

	if err := os.WriteFile(args[len(args)-1], buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return &proc.Result{ExitCode: 0}, nil
}

func (r *wavRunner) Start(name string, args []string) (*proc.Handle, error) {
	panic("not used")
}

func TestExtractArgs(t *testing.T) {
	e := NewExtractor(nil, "ffmpeg", 16000, 1, "pcm_s16le",
		"/tmp/live.wav", "/tmp/segment.wav", logger.Nop())

	w := Window{Index: 2, Start: 30 * time.Second, Duration: 15 * time.Second}

	args := e.extractArgs(w)

	assert.Equal(t, []string{
		"-loglevel", "quiet",
		"-v", "error",
		"-noaccurate_seek",
		"-i", "/tmp/live.wav",
		"-y",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-ss", "30",
		"-t", "15",
		"/tmp/segment.wav",
	}, args)
}

func TestExtractClampedTailWindow(t *testing.T) {
	// Final window of a 50s run with 15s steps: capture stopped at the
	// bound, so only 5s of audio exists past 45s. The clock hands out a 5s
	// window and a 5s artifact must satisfy it.
	dir := t.TempDir()
	segmentPath := filepath.Join(dir, "segment.wav")

	e := NewExtractor(&wavRunner{duration: 5 * time.Second}, "ffmpeg",
		16000, 1, "pcm_s16le", filepath.Join(dir, "live.wav"), segmentPath, logger.Nop())

	w := NewClock(15*time.Second, 50*time.Second).Window(3)
	require.Equal(t, 5*time.Second, w.Duration)

	path, err := e.Extract(context.Background(), w)
	require.NoError(t, err)
	assert.Equal(t, segmentPath, path)
}

func TestExtractRejectsShortArtifact(t *testing.T) {
	// A full-size window backed by a lagging capture: the artifact covers
	// only part of the window and must be rejected, not transcribed.
	dir := t.TempDir()

	e := NewExtractor(&wavRunner{duration: 5 * time.Second}, "ffmpeg",
		16000, 1, "pcm_s16le", filepath.Join(dir, "live.wav"),
		filepath.Join(dir, "segment.wav"), logger.Nop())

	w := Window{Index: 3, Start: 45 * time.Second, Duration: 15 * time.Second}

	_, err := e.Extract(context.Background(), w)
	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Contains(t, err.Error(), "not yet fully captured")
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0"},
		{15 * time.Second, "15"},
		{90 * time.Second, "90"},
		{2500 * time.Millisecond, "2.5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSeconds(tt.d))
	}
}

func TestExtractionErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := &ExtractionError{
		Window: Window{Index: 1, Start: 15 * time.Second, Duration: 15 * time.Second},
		Cause:  cause,
	}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "segment 1")
}

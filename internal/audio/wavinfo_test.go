package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWAV assembles a minimal PCM WAV file in memory
func buildWAV(sampleRate, channels, bits, dataBytes int, withListChunk bool) []byte {
	var buf bytes.Buffer

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
	}{
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * channels * bits / 8),
		BlockAlign:    uint16(channels * bits / 8),
		BitsPerSample: uint16(bits),
	})

	if withListChunk {
		// ffmpeg emits a LIST/INFO chunk between fmt and data
		buf.WriteString("LIST")
		binary.Write(&buf, binary.LittleEndian, uint32(4)) //nolint:errcheck
		buf.WriteString("INFO")
	}

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataBytes)) //nolint:errcheck
	buf.Write(make([]byte, dataBytes))

	return buf.Bytes()
}

func writeTempWAV(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadInfo(t *testing.T) {
	// One second of 16kHz mono 16-bit PCM
	path := writeTempWAV(t, buildWAV(16000, 1, 16, 32000, false))

	info, err := ReadInfo(path)
	require.NoError(t, err)

	assert.Equal(t, 1, info.AudioFormat)
	assert.Equal(t, 1, info.NumChannels)
	assert.Equal(t, 16000, info.SampleRate)
	assert.Equal(t, 16, info.BitsPerSample)
	assert.Equal(t, int64(32000), info.DataBytes)
	assert.Equal(t, time.Second, info.Duration())
}

func TestReadInfoSkipsMetadataChunks(t *testing.T) {
	path := writeTempWAV(t, buildWAV(16000, 1, 16, 480000, true))

	info, err := ReadInfo(path)
	require.NoError(t, err)

	assert.Equal(t, int64(480000), info.DataBytes)
	assert.Equal(t, 15*time.Second, info.Duration())
}

func TestReadInfoNotAWAV(t *testing.T) {
	path := writeTempWAV(t, []byte("definitely not audio data"))

	_, err := ReadInfo(path)
	assert.Error(t, err)
}

func TestReadInfoTruncated(t *testing.T) {
	full := buildWAV(16000, 1, 16, 32000, false)

	// Cut off before the data chunk header completes
	path := writeTempWAV(t, full[:40])

	_, err := ReadInfo(path)
	assert.Error(t, err)
}

func TestReadInfoMissingFile(t *testing.T) {
	_, err := ReadInfo(filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}

func TestDurationStereo(t *testing.T) {
	info := Info{
		NumChannels:   2,
		SampleRate:    44100,
		BitsPerSample: 16,
		DataBytes:     int64(44100 * 2 * 2), // one second
	}
	assert.Equal(t, time.Second, info.Duration())
}

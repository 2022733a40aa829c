package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// Info describes the format and extent of a PCM WAV file
type Info struct {
	AudioFormat   int   // 1 for PCM
	NumChannels   int   // 1 for mono, 2 for stereo
	SampleRate    int   // 8000, 44100, etc.
	BitsPerSample int   // 8, 16, etc.
	DataBytes     int64 // Size of the "data" sub-chunk
}

// Duration returns the playable length of the audio data
func (i Info) Duration() time.Duration {
	byteRate := i.SampleRate * i.NumChannels * (i.BitsPerSample / 8)
	if byteRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.DataBytes) / float64(byteRate) * float64(time.Second))
}

// ReadInfo parses the WAV header of the file at path
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	info, err := readInfo(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to parse WAV header of %s: %w", path, err)
	}
	return info, nil
}

// readInfo walks the RIFF chunk list. ffmpeg inserts metadata chunks (LIST)
// between "fmt " and "data", so chunks are scanned rather than assuming a
// fixed layout.
func readInfo(r io.ReadSeeker) (Info, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Info{}, fmt.Errorf("short RIFF descriptor: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Info{}, fmt.Errorf("not a RIFF/WAVE file")
	}

	var info Info
	haveFmt := false

	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return Info{}, fmt.Errorf("no data chunk found")
			}
			return Info{}, err
		}

		chunkID := string(header[0:4])
		chunkSize := binary.LittleEndian.Uint32(header[4:8])

		switch chunkID {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &fmtChunk); err != nil {
				return Info{}, fmt.Errorf("short fmt chunk: %w", err)
			}
			info.AudioFormat = int(fmtChunk.AudioFormat)
			info.NumChannels = int(fmtChunk.NumChannels)
			info.SampleRate = int(fmtChunk.SampleRate)
			info.BitsPerSample = int(fmtChunk.BitsPerSample)
			haveFmt = true

			// Skip any fmt extension bytes
			if chunkSize > 16 {
				if _, err := r.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					return Info{}, err
				}
			}

		case "data":
			if !haveFmt {
				return Info{}, fmt.Errorf("data chunk before fmt chunk")
			}
			info.DataBytes = int64(chunkSize)
			return info, nil

		default:
			// Chunks are word-aligned; odd sizes carry a pad byte
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return Info{}, err
			}
		}
	}
}

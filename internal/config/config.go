package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration record. It is assembled once at
// startup (defaults, then optional TOML file, then CLI flag overrides) and
// passed down explicitly; nothing below the entry point reads the environment.
type Config struct {
	Stream  StreamConfig  `toml:"stream"`
	Whisper WhisperConfig `toml:"whisper"`
	FFmpeg  FFmpegConfig  `toml:"ffmpeg"`
	Scratch ScratchConfig `toml:"scratch"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

// StreamConfig holds the segmentation cadence settings
type StreamConfig struct {
	// URL is the stream locator; always supplied on the command line
	URL                string `toml:"-"`
	StepSeconds        int    `toml:"step_seconds"`
	MaxDurationSeconds int    `toml:"max_duration_seconds"` // 0 = unbounded
}

// WhisperConfig holds the settings for the external transcription engine
type WhisperConfig struct {
	RootPath       string `toml:"root_path"` // whisper.cpp installation root
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	Threads        int    `toml:"threads"`
	TimeoutSeconds int    `toml:"timeout_seconds"` // 0 = no deadline
	JSONOutput     bool   `toml:"json_output"`
}

// FFmpegConfig holds the settings for the capture/extraction tool
type FFmpegConfig struct {
	Path       string `toml:"path"`
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	Codec      string `toml:"codec"`
}

// ScratchConfig holds the transient file locations used during a session
type ScratchConfig struct {
	LiveAudioPath    string `toml:"live_audio_path"`
	SegmentAudioPath string `toml:"segment_audio_path"`
}

// StorageConfig holds transcript persistence settings
type StorageConfig struct {
	// Path to the SQLite database; empty disables persistence
	Path string `toml:"path"`
}

// ServerConfig holds the live transcript API settings
type ServerConfig struct {
	// Addr to listen on (e.g. ":8080"); empty disables the API
	Addr string `toml:"addr"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration defaults
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			StepSeconds:        15,
			MaxDurationSeconds: 60,
		},
		Whisper: WhisperConfig{
			RootPath:   "~/whisper.cpp",
			Model:      "small",
			Language:   "ru",
			Threads:    8,
			JSONOutput: true,
		},
		FFmpeg: FFmpegConfig{
			Path:       "ffmpeg",
			SampleRate: 16000,
			Channels:   1,
			Codec:      "pcm_s16le",
		},
		Scratch: ScratchConfig{
			LiveAudioPath:    filepath.Join(os.TempDir(), "streamscribe-live.wav"),
			SegmentAudioPath: filepath.Join(os.TempDir(), "streamscribe-segment.wav"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration from a TOML file, layered over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if c.Stream.URL == "" {
		return fmt.Errorf("stream URL is required")
	}
	if c.Stream.StepSeconds <= 0 {
		return fmt.Errorf("step_seconds must be positive, got %d", c.Stream.StepSeconds)
	}
	if c.Stream.MaxDurationSeconds < 0 {
		return fmt.Errorf("max_duration_seconds must be >= 0, got %d", c.Stream.MaxDurationSeconds)
	}
	if c.Whisper.Model == "" {
		return fmt.Errorf("whisper model is required")
	}
	if c.Whisper.Threads <= 0 {
		return fmt.Errorf("whisper threads must be positive, got %d", c.Whisper.Threads)
	}
	if c.FFmpeg.SampleRate <= 0 || c.FFmpeg.Channels <= 0 {
		return fmt.Errorf("invalid ffmpeg audio settings: sample_rate=%d channels=%d",
			c.FFmpeg.SampleRate, c.FFmpeg.Channels)
	}
	return nil
}

// ExpandPaths resolves a leading "~/" in path settings against the user's
// home directory. Called once at startup, after flag overrides are applied.
func (c *Config) ExpandPaths() error {
	expanded, err := expandHome(c.Whisper.RootPath)
	if err != nil {
		return fmt.Errorf("failed to expand whisper root path: %w", err)
	}
	c.Whisper.RootPath = expanded

	if c.Storage.Path != "" {
		expanded, err = expandHome(c.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to expand storage path: %w", err)
		}
		c.Storage.Path = expanded
	}

	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

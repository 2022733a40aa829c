package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yegors/streamscribe/internal/api"
	"github.com/yegors/streamscribe/internal/capture"
	"github.com/yegors/streamscribe/internal/config"
	"github.com/yegors/streamscribe/internal/proc"
	"github.com/yegors/streamscribe/internal/segment"
	"github.com/yegors/streamscribe/internal/session"
	"github.com/yegors/streamscribe/internal/storage/sqlite"
	"github.com/yegors/streamscribe/internal/whisper"
	"github.com/yegors/streamscribe/pkg/logger"
)

var (
	configPath  string
	stepSec     int
	model       string
	language    string
	maxDuration int
	verbosity   int
	jsonOutput  bool
	whisperRoot string
	threads     int
	timeoutSec  int
	dbPath      string
	listenAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "streamscribe <stream-url>",
	Short: "Continuously transcribe a live audio stream with whisper.cpp",
	Long: `streamscribe slices a live audio stream into fixed-duration segments and
hands each one to whisper-cli, emitting one transcription result per segment
as it becomes available. Results go to stdout; diagnostics go to stderr.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runStream,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")
	rootCmd.Flags().IntVar(&stepSec, "step", 15, "segment step in seconds")
	rootCmd.Flags().StringVar(&model, "model", "small", "whisper model identifier")
	rootCmd.Flags().StringVar(&language, "language", "ru", "target language code")
	rootCmd.Flags().IntVar(&maxDuration, "max-duration", 60, "maximum total duration in seconds (0 = unbounded)")
	rootCmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "verbosity level (0 = info, 1+ = debug)")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", true, "emit structured JSON output per segment")
	rootCmd.Flags().StringVar(&whisperRoot, "whisper-root", "", "root path of the whisper.cpp installation (default ~/whisper.cpp)")
	rootCmd.Flags().IntVar(&threads, "threads", 8, "threads for whisper-cli")
	rootCmd.Flags().IntVar(&timeoutSec, "timeout", 0, "per-segment transcription deadline in seconds (0 = unbounded)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for transcript persistence (empty = disabled)")
	rootCmd.Flags().StringVar(&listenAddr, "listen", "", "address for the live transcript API (empty = disabled)")
}

func main() {
	// A local .env may carry WHISPER_ROOT and friends; absence is fine
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "streamscribe: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig assembles the configuration record: defaults, then the config
// file, then flag overrides. This is the only place the environment is read.
func buildConfig(cmd *cobra.Command, streamURL string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	cfg.Stream.URL = streamURL

	flags := cmd.Flags()
	if flags.Changed("step") {
		cfg.Stream.StepSeconds = stepSec
	}
	if flags.Changed("max-duration") {
		cfg.Stream.MaxDurationSeconds = maxDuration
	}
	if flags.Changed("model") {
		cfg.Whisper.Model = model
	}
	if flags.Changed("language") {
		cfg.Whisper.Language = language
	}
	if flags.Changed("json") {
		cfg.Whisper.JSONOutput = jsonOutput
	}
	if flags.Changed("threads") {
		cfg.Whisper.Threads = threads
	}
	if flags.Changed("timeout") {
		cfg.Whisper.TimeoutSeconds = timeoutSec
	}
	if flags.Changed("db") {
		cfg.Storage.Path = dbPath
	}
	if flags.Changed("listen") {
		cfg.Server.Addr = listenAddr
	}
	if verbosity > 0 {
		cfg.Logging.Level = "debug"
	}

	switch {
	case flags.Changed("whisper-root"):
		cfg.Whisper.RootPath = whisperRoot
	case os.Getenv("WHISPER_ROOT") != "":
		cfg.Whisper.RootPath = os.Getenv("WHISPER_ROOT")
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	step := time.Duration(cfg.Stream.StepSeconds) * time.Second
	maxDur := time.Duration(cfg.Stream.MaxDurationSeconds) * time.Second

	runner := proc.NewExecRunner(log)

	supervisor := capture.NewSupervisor(
		runner,
		cfg.FFmpeg.Path,
		cfg.FFmpeg.SampleRate,
		cfg.FFmpeg.Channels,
		cfg.FFmpeg.Codec,
		cfg.Scratch.LiveAudioPath,
		maxDur,
		log,
	)

	extractor := segment.NewExtractor(
		runner,
		cfg.FFmpeg.Path,
		cfg.FFmpeg.SampleRate,
		cfg.FFmpeg.Channels,
		cfg.FFmpeg.Codec,
		cfg.Scratch.LiveAudioPath,
		cfg.Scratch.SegmentAudioPath,
		log,
	)

	invoker := whisper.NewInvoker(runner, whisper.Config{
		RootPath:   cfg.Whisper.RootPath,
		Model:      cfg.Whisper.Model,
		Language:   cfg.Whisper.Language,
		Threads:    cfg.Whisper.Threads,
		Timeout:    time.Duration(cfg.Whisper.TimeoutSeconds) * time.Second,
		JSONOutput: cfg.Whisper.JSONOutput,
	}, log)

	orchestrator := session.New(
		cfg.Stream.URL,
		cfg.Whisper.JSONOutput,
		segment.NewClock(step, maxDur),
		supervisor,
		extractor,
		invoker,
		[]string{cfg.Scratch.LiveAudioPath, cfg.Scratch.SegmentAudioPath},
		log,
	)

	orchestrator.AddSink(session.NewWriterSink(os.Stdout, cfg.Whisper.JSONOutput))

	var storage *sqlite.TranscriptionStorage
	if cfg.Storage.Path != "" {
		db, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()

		storage, err = sqlite.NewTranscriptionStorage(db, log)
		if err != nil {
			return err
		}
		orchestrator.AddSink(session.NewStorageSink(storage, orchestrator.ID(), log))
	}

	if cfg.Server.Addr != "" {
		server := api.NewServer(cfg.Server.Addr, api.NewRouter(orchestrator, storage, log), log)
		server.Start()
		defer server.Stop()
	}

	// Stop requests are honored between ticks and always run the cleanup path
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return orchestrator.Run(ctx)
}

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"media-classify/lib"
)

var (
	configPath        string
	logFilePath       string
	directory         string
	output            string
	exclude           []string
	nameFormat        string
	timezone          string
	videoCodec        string
	videoEncoder      string
	crf               int
	preset            string
	videoBitrateLimit int
	marker            string
	ffmpegPath        string
	ffprobePath       string
	ffmpegInputArgs   []string
	ffmpegOutputArgs  []string
	dryRun            bool
	keepOriginal      bool
	verbose           bool
)

// addSettingsFlags declares the flags shared by every command that runs a
// batch. Only flags set on the command line override the config file.
func addSettingsFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&logFilePath, "log-file", "", "Also write logs to this file, rotated by size")
	flags.StringVarP(&directory, "directory", "d", "", "Directory to classify")
	flags.StringVar(&output, "output", "", "Output directory (defaults to the classified directory)")
	flags.StringArrayVar(&exclude, "exclude", nil, "Regular expression for relative paths to skip (repeatable)")
	flags.StringVarP(&nameFormat, "format", "f", lib.DefaultNameFormat, "strftime format of new file names")
	flags.StringVar(&timezone, "timezone", "", "Timezone capture times are expressed in (default local)")
	flags.StringVar(&videoCodec, "video-codec", lib.DefaultVideoCodec, "Codec a compliant video must use")
	flags.StringVar(&videoEncoder, "video-encoder", lib.DefaultVideoEncoder, "ffmpeg encoder used for re-encoding")
	flags.IntVar(&crf, "crf", lib.DefaultCRF, "Constant rate factor for re-encoding")
	flags.StringVar(&preset, "preset", lib.DefaultPreset, "Encoder preset")
	flags.IntVar(&videoBitrateLimit, "video-bitrate-limit", lib.DefaultVideoBitrateLimit, "Highest compliant bitrate in Mbps")
	flags.StringVar(&marker, "marker", lib.DefaultMarker, "Comment written to re-encoded videos")
	flags.StringVar(&ffmpegPath, "ffmpeg-path", "ffmpeg", "ffmpeg executable")
	flags.StringVar(&ffprobePath, "ffprobe-path", "ffprobe", "ffprobe executable")
	flags.StringArrayVar(&ffmpegInputArgs, "ffmpeg-input-args", nil, "Extra ffmpeg arguments placed before the input")
	flags.StringArrayVar(&ffmpegOutputArgs, "ffmpeg-output-args", nil, "Extra ffmpeg arguments placed before the output")
	flags.BoolVar(&dryRun, "dry-run", false, "Log what would happen without changing any file")
	flags.BoolVar(&keepOriginal, "keep-original", false, "Copy pictures and encode videos without removing originals")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

// loadSettings builds the settings from the config file, the environment and
// the flags that were set, then installs logging. The returned closer must be
// closed once the command is done.
func loadSettings(cmd *cobra.Command) (*lib.Settings, func(), error) {
	s, err := lib.LoadSettings(configPath)
	if err != nil {
		return nil, nil, err
	}
	applyFlags(cmd, s)

	closer := lib.SetupLogging(s.Verbose, s.Log)
	cleanup := func() {
		if err := closer.Close(); err != nil {
			slog.Warn("Failed to close log file", "error", err)
		}
	}

	if err := s.Validate(); err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

func applyFlags(cmd *cobra.Command, s *lib.Settings) {
	flags := cmd.Flags()
	if flags.Changed("log-file") {
		s.Log.Path = logFilePath
	}
	if flags.Changed("directory") {
		s.Directory = directory
	}
	if flags.Changed("output") {
		s.Output = output
	}
	if flags.Changed("exclude") {
		s.Exclude = exclude
	}
	if flags.Changed("format") {
		s.NameFormat = nameFormat
	}
	if flags.Changed("timezone") {
		s.Timezone = timezone
	}
	if flags.Changed("video-codec") {
		s.VideoCodec = videoCodec
	}
	if flags.Changed("video-encoder") {
		s.VideoEncoder = videoEncoder
	}
	if flags.Changed("crf") {
		s.CRF = crf
	}
	if flags.Changed("preset") {
		s.Preset = preset
	}
	if flags.Changed("video-bitrate-limit") {
		s.VideoBitrateLimit = videoBitrateLimit
	}
	if flags.Changed("marker") {
		s.Marker = marker
	}
	if flags.Changed("ffmpeg-path") {
		s.FFmpegPath = ffmpegPath
	}
	if flags.Changed("ffprobe-path") {
		s.FFprobePath = ffprobePath
	}
	if flags.Changed("ffmpeg-input-args") {
		s.FFmpegInputArgs = ffmpegInputArgs
	}
	if flags.Changed("ffmpeg-output-args") {
		s.FFmpegOutputArgs = ffmpegOutputArgs
	}
	if flags.Changed("dry-run") {
		s.DryRun = dryRun
	}
	if flags.Changed("keep-original") {
		s.KeepOriginal = keepOriginal
	}
	if flags.Changed("verbose") {
		s.Verbose = verbose
	}
}

// signalContext is cancelled on SIGINT or SIGTERM, which stops a running
// ffmpeg before the batch unwinds.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received signal, shutting down gracefully", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// progressOutput is where batch progress bars go: stderr on a terminal,
// nowhere when verbose logging would interleave with them.
func progressOutput(s *lib.Settings) *os.File {
	if s.Verbose || !lib.IsTerminal() {
		return nil
	}
	return os.Stderr
}

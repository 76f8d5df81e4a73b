package lib

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultNameFormat        = "%Y-%m-%d-%Hh%Mm%S"
	DefaultVideoCodec        = "hevc"
	DefaultVideoEncoder      = "libx265"
	DefaultCRF               = 28
	DefaultPreset            = "medium"
	DefaultVideoBitrateLimit = 10 // Mbps
	DefaultMarker            = "classify:reencoded"
	DefaultMaxSizeRatio      = 0.90
	DefaultDryRunSizeRatio   = 0.80
)

// Settings is the effective configuration of one classify run.
type Settings struct {
	Directory string   `yaml:"directory"`
	Output    string   `yaml:"output"`
	Exclude   []string `yaml:"exclude"`

	NameFormat string `yaml:"name_format"`
	Timezone   string `yaml:"timezone"`

	VideoCodec        string `yaml:"video_codec"`
	VideoEncoder      string `yaml:"video_encoder"`
	CRF               int    `yaml:"crf"`
	Preset            string `yaml:"preset"`
	VideoBitrateLimit int    `yaml:"video_bitrate_limit"` // Mbps
	Marker            string `yaml:"marker"`

	FFmpegPath       string   `yaml:"ffmpeg_path"`
	FFprobePath      string   `yaml:"ffprobe_path"`
	FFmpegInputArgs  []string `yaml:"ffmpeg_input_args"`
	FFmpegOutputArgs []string `yaml:"ffmpeg_output_args"`

	MaxSizeRatio    float64 `yaml:"max_size_ratio"`
	DryRunSizeRatio float64 `yaml:"dry_run_size_ratio"`

	DryRun       bool `yaml:"dry_run"`
	KeepOriginal bool `yaml:"keep_original"`
	SkipFiles    bool `yaml:"skip_files"`
	DeleteTrash  bool `yaml:"delete_trash"`

	Verbose bool    `yaml:"verbose"`
	Log     LogFile `yaml:"log"`

	location *time.Location
	patterns []*regexp.Regexp
}

// LogFile configures the optional rotating log file.
type LogFile struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DefaultSettings returns Settings with the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		NameFormat:        DefaultNameFormat,
		VideoCodec:        DefaultVideoCodec,
		VideoEncoder:      DefaultVideoEncoder,
		CRF:               DefaultCRF,
		Preset:            DefaultPreset,
		VideoBitrateLimit: DefaultVideoBitrateLimit,
		Marker:            DefaultMarker,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		MaxSizeRatio:      DefaultMaxSizeRatio,
		DryRunSizeRatio:   DefaultDryRunSizeRatio,
		SkipFiles:         true,
		DeleteTrash:       true,
		Log: LogFile{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

// LoadSettings reads settings from a YAML file (if path is set) and overrides
// them with CLASSIFY_* environment variables. It does not validate.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		if err := s.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	s.loadFromEnv()
	return s, nil
}

func (s *Settings) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, s)
}

func (s *Settings) loadFromEnv() {
	if v := os.Getenv("CLASSIFY_DIRECTORY"); v != "" {
		s.Directory = v
	}
	if v := os.Getenv("CLASSIFY_OUTPUT"); v != "" {
		s.Output = v
	}
	if v := os.Getenv("CLASSIFY_NAME_FORMAT"); v != "" {
		s.NameFormat = v
	}
	if v := os.Getenv("CLASSIFY_TIMEZONE"); v != "" {
		s.Timezone = v
	}
	if v := os.Getenv("CLASSIFY_FFMPEG_PATH"); v != "" {
		s.FFmpegPath = v
	}
	if v := os.Getenv("CLASSIFY_FFPROBE_PATH"); v != "" {
		s.FFprobePath = v
	}
	if v := os.Getenv("CLASSIFY_MARKER"); v != "" {
		s.Marker = v
	}
	if v := os.Getenv("CLASSIFY_VIDEO_BITRATE_LIMIT"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			s.VideoBitrateLimit = limit
		}
	}
	if v := os.Getenv("CLASSIFY_DRY_RUN"); v != "" {
		if dryRun, err := strconv.ParseBool(v); err == nil {
			s.DryRun = dryRun
		}
	}
}

// Validate checks the settings and resolves the timezone and exclude patterns.
// Every error it returns is a *ConfigError and is fatal for the run.
func (s *Settings) Validate() error {
	if s.Directory == "" {
		return &ConfigError{Field: "directory", Err: errors.New("is required")}
	}
	info, err := os.Stat(s.Directory)
	if err != nil {
		return &ConfigError{Field: "directory", Err: fmt.Errorf("%s does not exist", s.Directory)}
	}
	if !info.IsDir() {
		return &ConfigError{Field: "directory", Err: fmt.Errorf("%s is not a directory", s.Directory)}
	}

	if s.Output == "" {
		s.Output = s.Directory
	}

	loc := time.Local
	if s.Timezone != "" {
		loc, err = time.LoadLocation(s.Timezone)
		if err != nil {
			return &ConfigError{Field: "timezone", Err: err}
		}
	}
	s.location = loc

	s.patterns = s.patterns[:0]
	for _, pattern := range s.Exclude {
		re, err := regexp.Compile("^(?:" + pattern + ")")
		if err != nil {
			return &ConfigError{Field: "exclude", Err: err}
		}
		s.patterns = append(s.patterns, re)
	}

	if strings.TrimSpace(s.NameFormat) == "" {
		return &ConfigError{Field: "name_format", Err: errors.New("must not be empty")}
	}
	if strings.ContainsRune(s.NameFormat, os.PathSeparator) {
		return &ConfigError{Field: "name_format", Err: errors.New("must not contain a path separator")}
	}
	if s.Marker == "" {
		return &ConfigError{Field: "marker", Err: errors.New("must not be empty")}
	}
	if s.CRF < 0 || s.CRF > 51 {
		return &ConfigError{Field: "crf", Err: fmt.Errorf("%d is outside 0-51", s.CRF)}
	}
	if s.VideoBitrateLimit <= 0 {
		return &ConfigError{Field: "video_bitrate_limit", Err: fmt.Errorf("%d must be positive", s.VideoBitrateLimit)}
	}
	if s.MaxSizeRatio <= 0 || s.MaxSizeRatio > 1 {
		return &ConfigError{Field: "max_size_ratio", Err: fmt.Errorf("%v is outside (0, 1]", s.MaxSizeRatio)}
	}
	if s.DryRunSizeRatio <= 0 {
		return &ConfigError{Field: "dry_run_size_ratio", Err: fmt.Errorf("%v must be positive", s.DryRunSizeRatio)}
	}

	return nil
}

// Location is the timezone capture times are expressed in. Valid after Validate.
func (s *Settings) Location() *time.Location {
	if s.location == nil {
		return time.Local
	}
	return s.location
}

// ExcludePatterns returns the compiled exclude patterns. Valid after Validate.
func (s *Settings) ExcludePatterns() []*regexp.Regexp {
	return s.patterns
}

// BitrateLimit is the configured video bitrate limit in bits per second.
func (s *Settings) BitrateLimit() int64 {
	return int64(s.VideoBitrateLimit) * 1000 * 1000
}

// InputArgs splits the configured ffmpeg input arguments on whitespace.
func (s *Settings) InputArgs() []string { return splitArgs(s.FFmpegInputArgs) }

// OutputArgs splits the configured ffmpeg output arguments on whitespace.
func (s *Settings) OutputArgs() []string { return splitArgs(s.FFmpegOutputArgs) }

func splitArgs(values []string) []string {
	var args []string
	for _, v := range values {
		args = append(args, strings.Fields(v)...)
	}
	return args
}

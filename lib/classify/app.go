package classify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"media-classify/lib"
	"media-classify/lib/encode"
	"media-classify/lib/probe"
)

// App runs batches over the configured directory. Prober and Encoder default
// to ffprobe and ffmpeg when nil.
type App struct {
	Settings *lib.Settings
	Prober   probe.Prober
	Encoder  Encoder
	Progress io.Writer

	classifier *Classifier
	scanner    *lib.FileScanner
	exclude    []*regexp.Regexp
}

// CheckTools makes sure ffmpeg and ffprobe can be executed.
func CheckTools(s *lib.Settings) error {
	if _, err := exec.LookPath(s.FFprobePath); err != nil {
		return &lib.ConfigError{Field: "ffprobe_path", Err: fmt.Errorf("ffprobe not found: %w", err)}
	}
	if _, err := exec.LookPath(s.FFmpegPath); err != nil {
		return &lib.ConfigError{Field: "ffmpeg_path", Err: fmt.Errorf("ffmpeg not found: %w", err)}
	}
	return nil
}

func (a *App) init() error {
	if a.classifier != nil {
		return nil
	}
	s := a.Settings
	slog.Debug("Application starting", "config", fmt.Sprintf("%+v", *s))

	if a.Prober == nil || a.Encoder == nil {
		if err := CheckTools(s); err != nil {
			return err
		}
	}
	if a.Prober == nil {
		a.Prober = probe.NewCache(probe.NewFFprobe(s.FFprobePath))
	}
	if a.Encoder == nil {
		a.Encoder = encode.NewFFmpeg(encode.OptionsFromSettings(s))
	}

	if !s.DryRun {
		if err := os.MkdirAll(s.Output, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	classifier, err := NewClassifier(s, a.Prober, a.Encoder)
	if err != nil {
		return err
	}
	if a.Progress != nil {
		classifier.SetProgressOutput(a.Progress)
	}

	exclude, err := a.excludePatterns()
	if err != nil {
		return err
	}

	a.classifier = classifier
	a.scanner = lib.NewFileScanner(s.Directory, exclude)
	a.exclude = exclude
	return nil
}

// excluded reports whether path falls under an exclude pattern.
func (a *App) excluded(path string) bool {
	rel, err := filepath.Rel(a.classifier.inputRoot, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return false
	}
	for _, re := range a.exclude {
		if re.MatchString(rel) || re.MatchString(rel+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// excludePatterns adds the output directory to the configured patterns when
// it sits inside the input directory, so produced files are not rescanned
// as input.
func (a *App) excludePatterns() ([]*regexp.Regexp, error) {
	patterns := a.Settings.ExcludePatterns()

	input, err := filepath.Abs(a.Settings.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory: %w", err)
	}
	output, err := filepath.Abs(a.Settings.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	rel, err := filepath.Rel(input, output)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return patterns, nil
	}

	slog.Debug("Excluding output directory from scan", "path", rel)
	re := regexp.MustCompile("^(?:" + regexp.QuoteMeta(rel+string(filepath.Separator)) + ")")
	return append(append([]*regexp.Regexp{}, patterns...), re), nil
}

// Run scans the directory once and classifies everything found.
func (a *App) Run(ctx context.Context) (*Stats, error) {
	if err := a.init(); err != nil {
		return nil, err
	}

	list, err := a.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan media files: %w", err)
	}
	if list.Len() == 0 {
		slog.Warn("No media files found in directory", "dir", a.Settings.Directory)
		return &Stats{}, nil
	}

	_, stats, err := a.classifier.Run(ctx, list)
	return stats, err
}

package encode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// maxDiagnostic caps how much ffmpeg output an error carries.
const maxDiagnostic = 4096

type FFmpeg struct {
	opts Options
}

func NewFFmpeg(opts Options) *FFmpeg {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	return &FFmpeg{opts: opts}
}

// BuildArgs returns the ffmpeg argument vector (without the program name)
// that encodes input to output and stamps the marker and creation time.
func BuildArgs(input, output string, created time.Time, opts Options) []string {
	args := []string{"-hide_banner", "-nostdin", "-y"}
	args = append(args, opts.InputArgs...)
	args = append(args, "-i", input)
	args = append(args,
		"-map_metadata", "0",
		"-movflags", "use_metadata_tags",
		"-c:v", opts.Encoder,
		"-crf", strconv.Itoa(opts.CRF),
		"-preset", opts.Preset,
		"-c:a", "copy",
		"-metadata", "comment="+opts.Marker,
	)
	if !created.IsZero() {
		args = append(args, "-metadata", "creation_time="+created.UTC().Format(time.RFC3339))
	}
	args = append(args, "-loglevel", "warning", "-stats")
	args = append(args, opts.OutputArgs...)
	args = append(args, output)
	return args
}

// Encode re-encodes input into output. In dry-run mode it only logs. On
// cancellation the child is killed and ctx.Err() is returned; the partial
// output stays on disk for the caller to clean up.
func (f *FFmpeg) Encode(ctx context.Context, input, output string, created time.Time) error {
	input, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}
	output, err = filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}

	args := BuildArgs(input, output, created, f.opts)
	if f.opts.DryRun {
		slog.Info("Would encode", "input", input, "output", output)
		slog.Debug("Encoder command", "cmd", f.opts.FFmpegPath+" "+strings.Join(args, " "))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	slog.Info("Encoding video", "input", filepath.Base(input), "output", output)
	start := time.Now()

	diagnostic, err := f.run(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &EncodingError{Input: input, Output: output, Diagnostic: diagnostic, Err: err}
	}

	slog.Debug("Encoding finished", "output", output, "duration", time.Since(start).Round(time.Second))
	return nil
}

// Verify decodes path completely. Any error output counts as a failure.
func (f *FFmpeg) Verify(ctx context.Context, path string) error {
	if f.opts.DryRun {
		return nil
	}

	diagnostic, err := f.run(ctx, []string{"-nostdin", "-nostats", "-v", "error", "-i", path, "-f", "null", "-"})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &VerificationError{Path: path, Diagnostic: diagnostic, Err: err}
	}
	if diagnostic != "" {
		return &VerificationError{Path: path, Diagnostic: diagnostic}
	}
	return nil
}

// run executes ffmpeg with stdout and stderr captured together. In verbose
// mode the output is also streamed to the terminal.
func (f *FFmpeg) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, f.opts.FFmpegPath, args...)
	cmd.WaitDelay = f.opts.WaitDelay

	var output bytes.Buffer
	var w io.Writer = &output
	if f.opts.Verbose {
		w = io.MultiWriter(&output, os.Stderr)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	return tail(strings.TrimSpace(output.String()), maxDiagnostic), err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

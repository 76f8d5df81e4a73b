package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// FFprobe runs one ffprobe subprocess per query.
type FFprobe struct {
	Path string
}

func NewFFprobe(path string) *FFprobe {
	if path == "" {
		path = "ffprobe"
	}
	return &FFprobe{Path: path}
}

var execCommand = exec.CommandContext

func (f *FFprobe) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := execCommand(ctx, f.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe exit code %d: %s", exitError.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return output, nil
}

// Streams returns the video streams and container format of path.
func (f *FFprobe) Streams(ctx context.Context, path string) (*Output, error) {
	output, err := f.run(ctx,
		"-v", "error",
		"-select_streams", "v",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe streams of %s: %w", path, err)
	}
	return parseOutput(output)
}

func (f *FFprobe) Codec(ctx context.Context, path string) (string, error) {
	probeOutput, err := f.Streams(ctx, path)
	if err != nil {
		return "", err
	}

	duration, _ := strconv.ParseFloat(probeOutput.Format.Duration, 64)
	classification := ClassifyVideoStreams(probeOutput.Streams, duration)
	if classification.Primary == nil {
		return "", fmt.Errorf("no video stream in %s: %w", path, ErrNoValue)
	}
	if len(classification.Auxiliary) > 0 {
		slog.Debug("Ignoring auxiliary video streams",
			"path", path,
			"primary", classification.Primary.Index,
			"auxiliary", len(classification.Auxiliary))
	}
	return strings.ToLower(classification.Primary.CodecName), nil
}

func (f *FFprobe) Bitrate(ctx context.Context, path string) (int64, error) {
	output, err := f.entry(ctx, path, "format=bit_rate")
	if err != nil {
		return 0, fmt.Errorf("failed to probe bitrate of %s: %w", path, err)
	}
	bitrate, err := parseBitrate(output)
	if err != nil {
		return 0, fmt.Errorf("failed to parse bitrate of %s: %w", path, err)
	}
	return bitrate, nil
}

func (f *FFprobe) Tag(ctx context.Context, path, name string) (string, bool, error) {
	output, err := f.entry(ctx, path, "format_tags="+name)
	if err != nil {
		return "", false, fmt.Errorf("failed to probe tag %s of %s: %w", name, path, err)
	}
	value := strings.TrimSpace(output)
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (f *FFprobe) entry(ctx context.Context, path, entries string) (string, error) {
	output, err := f.run(ctx,
		"-v", "error",
		"-show_entries", entries,
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	if err != nil {
		return "", err
	}
	return string(output), nil
}

func parseOutput(data []byte) (*Output, error) {
	var probeOutput Output
	if err := json.Unmarshal(data, &probeOutput); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &probeOutput, nil
}

func parseBitrate(output string) (int64, error) {
	value := strings.TrimSpace(output)
	if value == "" || value == "N/A" {
		return 0, ErrNoValue
	}
	// Multiple lines appear when a file carries several format sections.
	if i := strings.IndexByte(value, '\n'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return strconv.ParseInt(value, 10, 64)
}

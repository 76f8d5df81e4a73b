package compliance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-classify/lib"
)

// SkipInfo records why a video was left as-is after a re-encode attempt.
// It is stored as JSON next to the video so later runs do not encode it again.
type SkipInfo struct {
	Reason             string    `json:"reason"`
	Timestamp          time.Time `json:"timestamp"`
	OriginalSizeBytes  int64     `json:"original_size_bytes"`
	CandidateSizeBytes int64     `json:"candidate_size_bytes"`
	MaxSizeRatio       float64   `json:"max_size_ratio"`
}

const ReasonInsufficientSavings = "insufficient_savings"

// SkipPath is the sidecar path for a video.
func SkipPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".skip"
}

func WriteSkipFile(videoPath string, info SkipInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal skip info: %w", err)
	}
	if err := os.WriteFile(SkipPath(videoPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write skip file: %w", err)
	}
	return nil
}

func ReadSkipFile(videoPath string) (*SkipInfo, error) {
	data, err := os.ReadFile(SkipPath(videoPath))
	if err != nil {
		return nil, err
	}
	var info SkipInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse skip file: %w", err)
	}
	return &info, nil
}

// HasValidSkipFile reports whether the video has a sidecar recorded for its
// current size. A sidecar left behind by a since-replaced file does not count.
func HasValidSkipFile(videoPath string) bool {
	info, err := ReadSkipFile(videoPath)
	if err != nil {
		return false
	}
	stat, err := os.Stat(videoPath)
	if err != nil {
		return false
	}
	return stat.Size() == info.OriginalSizeBytes
}

// MoveSkipFile carries a sidecar along when its video is renamed. Videos
// without a sidecar are left alone.
func MoveSkipFile(fromVideo, toVideo string) error {
	from, to := SkipPath(fromVideo), SkipPath(toVideo)
	if from == to || !lib.FileExists(from) {
		return nil
	}
	return lib.MoveFile(from, to)
}

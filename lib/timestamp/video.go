package timestamp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/abema/go-mp4"

	"media-classify/lib/probe"
)

// Seconds between the QuickTime epoch (1904-01-01) and the Unix epoch.
const appleEpochOffset = 2082844800

// Android cameras name files VID_YYYYMMDD_HHMMSSFFF in UTC.
var filenamePattern = regexp.MustCompile(`(\d{8})_(\d{9})`)

var isoContainers = map[string]bool{
	".mp4": true,
	".mov": true,
	".m4v": true,
	".3gp": true,
}

// Video tries the filename pattern, the creation_time tag, the mvhd box and
// finally the filesystem creation time.
func (r *Resolver) Video(ctx context.Context, path string) (Timestamp, error) {
	if t, ok := fromFilename(filepath.Base(path)); ok {
		return Timestamp{Time: t.In(r.loc), Source: FilenamePattern}, nil
	}

	if t, ok := r.fromCreationTag(ctx, path); ok {
		return Timestamp{Time: t.In(r.loc), Source: EmbeddedMetadata}, nil
	}

	t, err := movieHeaderTime(path)
	if err == nil {
		return Timestamp{Time: t.In(r.loc), Source: EmbeddedMetadata}, nil
	}
	slog.Debug("No movie header time", "path", path, "error", err)

	times, err := r.statTimes(path)
	if err != nil {
		return Timestamp{}, fmt.Errorf("failed to stat video: %w", err)
	}
	return Timestamp{Time: times.Created.In(r.loc), Source: FilesystemTime}, nil
}

func fromFilename(name string) (time.Time, bool) {
	m := filenamePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	value := m[1] + m[2][:6] + "." + m[2][6:]
	t, err := time.ParseInLocation("20060102150405.000", value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r *Resolver) fromCreationTag(ctx context.Context, path string) (time.Time, bool) {
	if r.prober == nil {
		return time.Time{}, false
	}
	value, ok, err := r.prober.Tag(ctx, path, probe.TagCreationTime)
	if err != nil {
		slog.Debug("Failed to probe creation time", "path", path, "error", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
	if err != nil {
		slog.Debug("Unparsable creation time", "path", path, "value", value)
		return time.Time{}, false
	}
	return t, true
}

// movieHeaderTime reads moov/mvhd from ISO base media files. Cameras that
// never set the clock write zero, which is treated as absent.
func movieHeaderTime(path string) (time.Time, error) {
	if !isoContainers[strings.ToLower(filepath.Ext(path))] {
		return time.Time{}, fmt.Errorf("not an ISO base media file")
	}

	file, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer file.Close()

	boxes, err := mp4.ExtractBoxesWithPayload(file, nil, []mp4.BoxPath{
		{mp4.BoxTypeMoov(), mp4.BoxTypeMvhd()},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read mp4 structure: %w", err)
	}

	for _, box := range boxes {
		mvhd, ok := box.Payload.(*mp4.Mvhd)
		if !ok {
			continue
		}
		creation := mvhd.GetCreationTime()
		if creation == 0 {
			return time.Time{}, fmt.Errorf("mvhd creation time is zero")
		}
		t := time.Unix(int64(creation)-appleEpochOffset, 0).UTC()
		if t.Year() < 1970 {
			return time.Time{}, fmt.Errorf("mvhd creation time predates 1970")
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("mvhd box not found")
}

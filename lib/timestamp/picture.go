package timestamp

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

const exifLayout = "2006:01:02 15:04:05"

// Picture reads DateTimeOriginal, then DateTime, from the EXIF block. EXIF
// dates carry no zone and are read as wall time in the resolver's location.
func (r *Resolver) Picture(path string) (Timestamp, error) {
	f, err := os.Open(path)
	if err != nil {
		return Timestamp{}, fmt.Errorf("failed to open picture: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		slog.Debug("No EXIF data", "path", path, "error", err)
		return Timestamp{}, fmt.Errorf("%s: %w", path, ErrNoTimestamp)
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		value, err := tag.StringVal()
		if err != nil {
			continue
		}
		t, err := r.parseExifTime(value)
		if err != nil {
			slog.Debug("Unparsable EXIF date", "path", path, "field", field, "value", value)
			continue
		}
		return Timestamp{Time: t, Source: EmbeddedMetadata}, nil
	}

	return Timestamp{}, fmt.Errorf("%s: %w", path, ErrNoTimestamp)
}

func (r *Resolver) parseExifTime(value string) (time.Time, error) {
	value = strings.TrimSpace(strings.TrimRight(value, "\x00"))
	return time.ParseInLocation(exifLayout, value, r.loc)
}

// Package timestamp works out when a picture or video was captured.
package timestamp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-classify/lib"
	"media-classify/lib/probe"
)

// ErrNoTimestamp means a picture carries no usable EXIF date.
var ErrNoTimestamp = errors.New("no capture timestamp")

type Source int

const (
	EmbeddedMetadata Source = iota
	FilenamePattern
	FilesystemTime
)

func (s Source) String() string {
	switch s {
	case EmbeddedMetadata:
		return "embedded_metadata"
	case FilenamePattern:
		return "filename_pattern"
	case FilesystemTime:
		return "filesystem_time"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Timestamp is a capture time and where it came from. Time is expressed in
// the resolver's location.
type Timestamp struct {
	Time   time.Time
	Source Source
}

// Resolver derives capture timestamps. It is stateless across calls.
type Resolver struct {
	prober    probe.Prober
	loc       *time.Location
	statTimes func(string) (lib.FileTimes, error)
}

func NewResolver(prober probe.Prober, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		prober:    prober,
		loc:       loc,
		statTimes: lib.StatTimes,
	}
}

// Resolve dispatches on the item kind. Videos always resolve unless the file
// has vanished; pictures fail with ErrNoTimestamp when EXIF has no date.
func (r *Resolver) Resolve(ctx context.Context, item lib.MediaItem) (Timestamp, error) {
	switch item.Kind {
	case lib.Picture:
		return r.Picture(item.Path)
	case lib.Video:
		return r.Video(ctx, item.Path)
	default:
		return Timestamp{}, fmt.Errorf("unsupported media kind %v for %s", item.Kind, item.Path)
	}
}

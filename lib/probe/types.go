package probe

import (
	"context"
	"errors"
)

// ErrNoValue is returned when ffprobe reports nothing for a queried field.
var ErrNoValue = errors.New("no value reported")

// Prober answers the per-field questions the classifier asks about a file.
// Every call is a fresh query; nothing is cached between calls.
type Prober interface {
	// Codec returns the lower-cased codec name of the primary video stream.
	Codec(ctx context.Context, path string) (string, error)
	// Bitrate returns the container bitrate in bits per second.
	Bitrate(ctx context.Context, path string) (int64, error)
	// Tag returns a container-level tag. A missing tag is ("", false, nil).
	Tag(ctx context.Context, path, name string) (string, bool, error)
}

const (
	TagComment      = "comment"
	TagCreationTime = "creation_time"
	TagLocation     = "location"
)

// Comment returns the container comment tag.
func Comment(ctx context.Context, p Prober, path string) (string, bool, error) {
	return p.Tag(ctx, path, TagComment)
}

type Output struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	PixelFormat string            `json:"pix_fmt,omitempty"`
	Bitrate     string            `json:"bit_rate,omitempty"`
	Width       int               `json:"width,omitempty"`
	Height      int               `json:"height,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

type Format struct {
	Filename string            `json:"filename"`
	Size     string            `json:"size"`
	Duration string            `json:"duration"`
	Bitrate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags,omitempty"`
}

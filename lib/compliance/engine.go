// Package compliance decides whether a video already meets the target
// encoding and can be left alone.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"media-classify/lib"
	"media-classify/lib/naming"
	"media-classify/lib/probe"
)

type Decision int

const (
	NeedsEncoding Decision = iota
	AlreadyCompliant
)

func (d Decision) String() string {
	if d == AlreadyCompliant {
		return "already_compliant"
	}
	return "needs_encoding"
}

type Options struct {
	Codec        string
	BitrateLimit int64 // bits per second
	NameFormat   string
	Marker       string
	SkipFiles    bool
}

// OptionsFromSettings maps the run settings onto engine options.
func OptionsFromSettings(s *lib.Settings) Options {
	return Options{
		Codec:        s.VideoCodec,
		BitrateLimit: s.BitrateLimit(),
		NameFormat:   s.NameFormat,
		Marker:       s.Marker,
		SkipFiles:    s.SkipFiles,
	}
}

type Engine struct {
	prober probe.Prober
	opts   Options
}

func NewEngine(prober probe.Prober, opts Options) *Engine {
	opts.Codec = strings.ToLower(opts.Codec)
	return &Engine{prober: prober, opts: opts}
}

// Decide reports whether the video at path must be re-encoded. A marker in
// the comment tag short-circuits every other check, which keeps encoder
// output from being encoded again on the next run.
func (e *Engine) Decide(ctx context.Context, path string) (Decision, error) {
	comment, ok, err := probe.Comment(ctx, e.prober, path)
	if err != nil {
		return NeedsEncoding, fmt.Errorf("failed to probe comment: %w", err)
	}
	if ok && strings.Contains(comment, e.opts.Marker) {
		slog.Debug("Marker found", "path", path)
		return AlreadyCompliant, nil
	}

	if e.opts.SkipFiles && HasValidSkipFile(path) {
		slog.Debug("Skip file found", "path", path)
		return AlreadyCompliant, nil
	}

	name := filepath.Base(path)
	nameMatches := naming.Matches(strings.TrimSuffix(name, filepath.Ext(name)), e.opts.NameFormat)

	codec, err := e.prober.Codec(ctx, path)
	if err != nil {
		return NeedsEncoding, fmt.Errorf("failed to probe codec: %w", err)
	}
	bitrate, err := e.prober.Bitrate(ctx, path)
	if err != nil {
		return NeedsEncoding, fmt.Errorf("failed to probe bitrate: %w", err)
	}

	compliant := strings.ToLower(codec) == e.opts.Codec &&
		nameMatches &&
		bitrate <= e.opts.BitrateLimit

	slog.Debug("Compliance check",
		"path", path,
		"codec", codec,
		"bitrate", lib.FormatBitrate(bitrate),
		"name_matches", nameMatches,
		"compliant", compliant)

	if compliant {
		return AlreadyCompliant, nil
	}
	return NeedsEncoding, nil
}

// IsCompliant is Decide reduced to a bool.
func (e *Engine) IsCompliant(ctx context.Context, path string) (bool, error) {
	d, err := e.Decide(ctx, path)
	return d == AlreadyCompliant, err
}

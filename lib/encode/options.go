// Package encode runs ffmpeg to re-encode videos and to check the result.
package encode

import (
	"time"

	"media-classify/lib"
)

// Options configures every ffmpeg invocation of a run.
type Options struct {
	FFmpegPath string
	Encoder    string
	CRF        int
	Preset     string
	Marker     string

	// Extra arguments placed before -i and before the output path.
	InputArgs  []string
	OutputArgs []string

	DryRun  bool
	Verbose bool

	// WaitDelay bounds how long pipes may stay open after ffmpeg is killed.
	WaitDelay time.Duration
}

func OptionsFromSettings(s *lib.Settings) Options {
	return Options{
		FFmpegPath: s.FFmpegPath,
		Encoder:    s.VideoEncoder,
		CRF:        s.CRF,
		Preset:     s.Preset,
		Marker:     s.Marker,
		InputArgs:  s.InputArgs(),
		OutputArgs: s.OutputArgs(),
		DryRun:     s.DryRun,
		Verbose:    s.Verbose,
		WaitDelay:  5 * time.Second,
	}
}

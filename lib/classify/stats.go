package classify

import (
	"log/slog"
	"time"

	"media-classify/lib"
)

// Stats counts what a batch did. Every item ends up in exactly one of the
// outcome counters.
type Stats struct {
	Pictures int
	Videos   int

	Renamed      int
	Copied       int
	Unchanged    int
	Compliant    int
	Encoded      int
	KeptOriginal int
	Deleted      int
	Skipped      int
	Failed       int

	BytesSaved int64
	Duration   time.Duration
}

// Processed is the number of items that reached an outcome.
func (s *Stats) Processed() int {
	return s.Renamed + s.Copied + s.Unchanged + s.Compliant + s.Encoded +
		s.KeptOriginal + s.Deleted + s.Skipped + s.Failed
}

func (s *Stats) Log(logger *slog.Logger) {
	logger.Info("Batch completed",
		"pictures", s.Pictures,
		"videos", s.Videos,
		"renamed", s.Renamed,
		"copied", s.Copied,
		"unchanged", s.Unchanged,
		"compliant", s.Compliant,
		"encoded", s.Encoded,
		"kept_original", s.KeptOriginal,
		"deleted", s.Deleted,
		"skipped", s.Skipped,
		"failed", s.Failed,
		"saved", lib.FormatSize(s.BytesSaved),
		"duration", s.Duration.Round(time.Millisecond))
}

// Package arbiter keeps either an original video or its re-encoded candidate,
// whichever is worth keeping, and puts it at the destination path.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"media-classify/lib"
)

var ErrCandidateMissing = errors.New("encoded candidate is missing")

type Kept int

const (
	OriginalKept Kept = iota
	CandidateKept
)

func (k Kept) String() string {
	if k == CandidateKept {
		return "candidate"
	}
	return "original"
}

// Pair names the files involved in one decision. Destination defaults to
// Candidate; it differs when the candidate was written to a temporary
// sibling because the original already sits at its canonical path.
// OriginalDestination is where a kept original goes and defaults to
// Destination; it differs when the original's container has another
// extension than the candidate's.
type Pair struct {
	Original            string
	Candidate           string
	Destination         string
	OriginalDestination string
}

type Outcome struct {
	Kept          Kept
	Path          string
	OriginalSize  int64
	CandidateSize int64
	Ratio         float64
}

type Arbiter struct {
	MaxSizeRatio    float64
	DryRunSizeRatio float64
	DryRun          bool
}

func New(s *lib.Settings) *Arbiter {
	return &Arbiter{
		MaxSizeRatio:    s.MaxSizeRatio,
		DryRunSizeRatio: s.DryRunSizeRatio,
		DryRun:          s.DryRun,
	}
}

// Resolve compares sizes and keeps the candidate when it is at most
// MaxSizeRatio of the original. The candidate must already be verified.
func (a *Arbiter) Resolve(ctx context.Context, pair Pair) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pair.Destination == "" {
		pair.Destination = pair.Candidate
	}
	if pair.OriginalDestination == "" {
		pair.OriginalDestination = pair.Destination
	}

	origInfo, err := os.Stat(pair.Original)
	if err != nil {
		return nil, fmt.Errorf("failed to stat original: %w", err)
	}
	out := &Outcome{OriginalSize: origInfo.Size(), Path: pair.Destination}

	if a.DryRun {
		out.CandidateSize = int64(float64(out.OriginalSize) * a.DryRunSizeRatio)
	} else {
		candInfo, err := os.Stat(pair.Candidate)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%s: %w", pair.Candidate, ErrCandidateMissing)
			}
			return nil, fmt.Errorf("failed to stat candidate: %w", err)
		}
		out.CandidateSize = candInfo.Size()
	}

	if out.OriginalSize > 0 {
		out.Ratio = float64(out.CandidateSize) / float64(out.OriginalSize)
	} else {
		out.Ratio = 1
	}

	if out.Ratio > a.MaxSizeRatio {
		out.Kept = OriginalKept
		out.Path = pair.OriginalDestination
		slog.Info("Keeping original, insufficient space savings",
			"file", pair.Original,
			"size_ratio", lib.FormatRatio(out.Ratio),
			"max_size_ratio", lib.FormatRatio(a.MaxSizeRatio))
		if a.DryRun {
			return out, nil
		}
		return out, a.keepOriginal(pair)
	}

	out.Kept = CandidateKept
	slog.Info("Keeping encoded video",
		"file", pair.Destination,
		"original_size", lib.FormatSize(out.OriginalSize),
		"encoded_size", lib.FormatSize(out.CandidateSize),
		"size_ratio", lib.FormatRatio(out.Ratio))
	if a.DryRun {
		return out, nil
	}
	return out, a.keepCandidate(pair)
}

func (a *Arbiter) keepOriginal(pair Pair) error {
	if err := os.Remove(pair.Candidate); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove candidate: %w", err)
	}
	if pair.OriginalDestination == pair.Original {
		return nil
	}
	if err := lib.MoveFile(pair.Original, pair.OriginalDestination); err != nil {
		return fmt.Errorf("failed to move original: %w", err)
	}
	return nil
}

func (a *Arbiter) keepCandidate(pair Pair) error {
	times, err := lib.StatTimes(pair.Original)
	if err != nil {
		return fmt.Errorf("failed to read original times: %w", err)
	}

	if pair.Destination != pair.Original {
		if err := os.Remove(pair.Original); err != nil {
			return fmt.Errorf("failed to remove original: %w", err)
		}
	}
	if pair.Candidate != pair.Destination {
		if err := lib.MoveFile(pair.Candidate, pair.Destination); err != nil {
			return fmt.Errorf("failed to move candidate: %w", err)
		}
	}

	if err := os.Chtimes(pair.Destination, times.Access, times.Modify); err != nil {
		return fmt.Errorf("failed to restore file times: %w", err)
	}
	return nil
}

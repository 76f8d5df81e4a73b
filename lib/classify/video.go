package classify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"media-classify/lib"
	"media-classify/lib/arbiter"
	"media-classify/lib/compliance"
	"media-classify/lib/naming"
	"media-classify/lib/probe"
)

func (b *batch) processVideo(ctx context.Context, item lib.MediaItem) (string, outcome, error) {
	ts, err := b.resolver.Video(ctx, item.Path)
	if err != nil {
		return "", 0, err
	}
	b.logger.Debug("Video taken", "path", item.Path, "time", ts.Time, "source", ts.Source)
	b.logLocation(ctx, item.Path)

	destDir, err := b.outputDir(item.Path)
	if err != nil {
		return "", 0, err
	}

	decision, err := b.engine.Decide(ctx, item.Path)
	if err != nil {
		return "", 0, err
	}

	if decision == compliance.AlreadyCompliant {
		return b.placeCompliant(item, destDir, ts.Time)
	}
	return b.reencode(ctx, item, destDir, ts.Time)
}

// placeCompliant renames a video that needs no encoding, carrying its skip
// sidecar along.
func (b *batch) placeCompliant(item lib.MediaItem, destDir string, captured time.Time) (string, outcome, error) {
	nameFor := b.namer.NameFor
	if b.settings.KeepOriginal {
		if dest, ok := b.existingCopy(item.Path, destDir, captured, item.Ext); ok {
			b.logger.Debug("Video already copied", "path", item.Path, "copy", dest)
			return item.Path, outcomeCompliant, nil
		}
		nameFor = b.nameForCopy
	}
	dest, err := nameFor(item.Path, destDir, captured, item.Ext)
	if err != nil {
		return "", 0, err
	}

	if dest == item.Path {
		b.logger.Debug("Video already compliant", "path", item.Path)
		return item.Path, outcomeCompliant, nil
	}

	path, _, err := b.place("video", item.Path, dest)
	if err != nil {
		return "", 0, err
	}
	if !b.settings.DryRun && !b.settings.KeepOriginal {
		if err := compliance.MoveSkipFile(item.Path, dest); err != nil {
			b.logger.Warn("Failed to move skip file", "path", item.Path, "error", err)
		}
	}
	return path, outcomeCompliant, nil
}

// reencode encodes the video next to its destination, verifies the result
// and lets the arbiter pick which file survives. The original is only
// touched after the candidate decoded cleanly.
func (b *batch) reencode(ctx context.Context, item lib.MediaItem, destDir string, captured time.Time) (string, outcome, error) {
	nameFor := b.namer.NameFor
	if b.settings.KeepOriginal {
		if dest, ok := b.existingEncode(ctx, destDir, captured); ok {
			b.logger.Debug("Video already encoded", "path", item.Path, "encode", dest)
			return item.Path, outcomeUnchanged, nil
		}
		nameFor = b.namer.NameForCopy
	}
	dest, err := nameFor(item.Path, destDir, captured, encodedExt)
	if err != nil {
		return "", 0, err
	}

	// A kept original keeps its container, so it may need a name of its own.
	origDest := dest
	if !b.settings.KeepOriginal && naming.NormalizeExt(item.Ext) != encodedExt {
		origDest, err = b.namer.NameFor(item.Path, destDir, captured, item.Ext)
		if err != nil {
			b.namer.Release(dest)
			return "", 0, err
		}
	}

	candidate := dest
	if dest == item.Path {
		candidate = filepath.Join(filepath.Dir(dest), lib.TempPrefix+uuid.NewString()+encodedExt)
	}

	b.logger.Info("Encoding video", "from", item.Name(), "to", dest)
	if err := b.encoder.Encode(ctx, item.Path, candidate, captured); err != nil {
		b.discard(ctx, candidate, dest, origDest)
		return "", 0, err
	}
	if err := b.encoder.Verify(ctx, candidate); err != nil {
		b.discard(ctx, candidate, dest, origDest)
		return "", 0, err
	}

	if b.settings.KeepOriginal {
		return item.Path, outcomeEncoded, nil
	}

	out, err := b.arbiter.Resolve(ctx, arbiter.Pair{
		Original:            item.Path,
		Candidate:           candidate,
		Destination:         dest,
		OriginalDestination: origDest,
	})
	if err != nil {
		// Files may be half moved; leave them for inspection.
		b.namer.Release(dest)
		b.namer.Release(origDest)
		return "", 0, err
	}

	if out.Kept == arbiter.OriginalKept {
		if origDest != dest {
			b.namer.Release(dest)
		}
		b.writeSkipFile(out)
		return out.Path, outcomeKeptOriginal, nil
	}
	if origDest != dest {
		b.namer.Release(origDest)
	}

	b.stats.BytesSaved += out.OriginalSize - out.CandidateSize
	return out.Path, outcomeEncoded, nil
}

func (b *batch) writeSkipFile(out *arbiter.Outcome) {
	if b.settings.DryRun || !b.settings.SkipFiles {
		return
	}
	info := compliance.SkipInfo{
		Reason:             compliance.ReasonInsufficientSavings,
		Timestamp:          time.Now(),
		OriginalSizeBytes:  out.OriginalSize,
		CandidateSizeBytes: out.CandidateSize,
		MaxSizeRatio:       b.arbiter.MaxSizeRatio,
	}
	if err := compliance.WriteSkipFile(out.Path, info); err != nil {
		b.logger.Warn("Failed to create skip file", "path", out.Path, "error", err)
	}
}

// discard removes a rejected candidate and frees the names reserved for it.
// Output of an interrupted encode stays on disk for manual cleanup.
func (b *batch) discard(ctx context.Context, candidate string, reserved ...string) {
	for _, path := range reserved {
		b.namer.Release(path)
	}
	if b.settings.DryRun {
		return
	}
	if ctx.Err() != nil {
		b.logger.Warn("Encoding interrupted, leaving partial output", "path", candidate)
		return
	}
	if err := os.Remove(candidate); err != nil && !os.IsNotExist(err) {
		b.logger.Warn("Failed to remove encoder output", "path", candidate, "error", err)
	}
}

// existingEncode finds the encode an earlier keep_original run made: a
// marked video under the canonical name, or a suffixed one, whose
// creation_time is the capture time.
func (b *batch) existingEncode(ctx context.Context, destDir string, captured time.Time) (string, bool) {
	base := filepath.Join(destDir, b.namer.Base(captured))
	candidates := []string{base + encodedExt}
	for i := 0; i < naming.MaxSuffixes; i++ {
		candidates = append(candidates, base+string(rune('a'+i))+encodedExt)
	}

	for _, candidate := range candidates {
		if !lib.FileExists(candidate) {
			continue
		}
		comment, ok, err := probe.Comment(ctx, b.prober, candidate)
		if err != nil || !ok || !strings.Contains(comment, b.settings.Marker) {
			continue
		}
		value, ok, err := b.prober.Tag(ctx, candidate, probe.TagCreationTime)
		if err != nil || !ok {
			continue
		}
		created, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
		if err != nil {
			continue
		}
		if created.Truncate(time.Second).Equal(captured.Truncate(time.Second)) {
			return candidate, true
		}
	}
	return "", false
}

func (b *batch) logLocation(ctx context.Context, path string) {
	if !b.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	loc, ok, err := probe.VideoLocation(ctx, b.prober, path)
	if err != nil {
		b.logger.Debug("Failed to probe location", "path", path, "error", err)
		return
	}
	if ok {
		b.logger.Debug("Video location", "path", path, "location", fmt.Sprint(loc))
	}
}

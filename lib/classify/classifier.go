// Package classify runs a batch: it walks the work list and routes every
// picture and video through timestamping, naming, and re-encoding.
package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
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
	"media-classify/lib/timestamp"
)

// encodedExt is the container every re-encoded video is written to.
const encodedExt = ".mp4"

var trashPrefixes = []string{".trashed", ".pending"}

// Encoder produces and checks re-encoded videos.
type Encoder interface {
	Encode(ctx context.Context, input, output string, created time.Time) error
	Verify(ctx context.Context, path string) error
}

type Classifier struct {
	settings *lib.Settings
	prober   probe.Prober
	encoder  Encoder

	resolver *timestamp.Resolver
	engine   *compliance.Engine
	arbiter  *arbiter.Arbiter

	inputRoot  string
	outputRoot string
	progress   io.Writer
}

// NewClassifier wires the per-item pipeline. s must already be validated.
func NewClassifier(s *lib.Settings, prober probe.Prober, encoder Encoder) (*Classifier, error) {
	inputRoot, err := filepath.Abs(s.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input directory: %w", err)
	}
	outputRoot, err := filepath.Abs(s.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	return &Classifier{
		settings:   s,
		prober:     prober,
		encoder:    encoder,
		resolver:   timestamp.NewResolver(prober, s.Location()),
		engine:     compliance.NewEngine(prober, compliance.OptionsFromSettings(s)),
		arbiter:    arbiter.New(s),
		inputRoot:  inputRoot,
		outputRoot: outputRoot,
		progress:   io.Discard,
	}, nil
}

// SetProgressOutput enables progress bars on w.
func (c *Classifier) SetProgressOutput(w io.Writer) {
	c.progress = w
}

// outcome is where a processed item ended up.
type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeRenamed
	outcomeCopied
	outcomeCompliant
	outcomeEncoded
	outcomeKeptOriginal
)

// batch holds the state of one pass over a work list.
type batch struct {
	*Classifier
	namer  *naming.Namer
	list   lib.WorkList
	stats  *Stats
	logger *slog.Logger
}

// Run processes every item of list: trash first, then pictures, then videos.
// Per-item failures are logged and counted; only cancellation stops the
// batch early. The returned list reflects every rename and deletion.
func (c *Classifier) Run(ctx context.Context, list lib.WorkList) (lib.WorkList, *Stats, error) {
	start := time.Now()
	b := &batch{
		Classifier: c,
		namer:      naming.NewNamer(c.settings.NameFormat),
		list:       list,
		stats:      &Stats{},
		logger:     slog.Default().With("run", uuid.NewString()[:8]),
	}

	if c.settings.DryRun {
		b.logger.Info("Dry run, no file will be changed")
	}

	if c.settings.DeleteTrash {
		b.deleteTrash()
	}

	pictures := b.list.Pictures()
	videos := b.list.Videos()
	b.stats.Pictures = len(pictures)
	b.stats.Videos = len(videos)

	err := b.each(ctx, pictures, "Pictures", b.processPicture)
	if err == nil {
		err = b.each(ctx, videos, "Videos", b.processVideo)
	}

	b.stats.Duration = time.Since(start)
	b.stats.Log(b.logger)
	return b.list, b.stats, err
}

func (b *batch) each(ctx context.Context, items []lib.MediaItem, description string, process func(context.Context, lib.MediaItem) (string, outcome, error)) error {
	if len(items) == 0 {
		return nil
	}

	bar := newProgressBar(len(items), description, b.progress)
	defer bar.Finish()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		path, result, err := process(ctx, item)
		bar.Add(1)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.recordFailure(item, err)
			continue
		}

		b.record(result)
		if path != item.Path {
			b.replace(item, path)
		}
	}
	return nil
}

func (b *batch) record(result outcome) {
	switch result {
	case outcomeRenamed:
		b.stats.Renamed++
	case outcomeCopied:
		b.stats.Copied++
	case outcomeCompliant:
		b.stats.Compliant++
	case outcomeEncoded:
		b.stats.Encoded++
	case outcomeKeptOriginal:
		b.stats.KeptOriginal++
	default:
		b.stats.Unchanged++
	}
}

func (b *batch) recordFailure(item lib.MediaItem, err error) {
	switch {
	case lib.IsInvariant(err):
		b.logger.Error("Invariant violated", "path", item.Path, "error", err)
		b.stats.Failed++
	case errors.Is(err, timestamp.ErrNoTimestamp):
		b.logger.Warn("No capture date, leaving file as is", "path", item.Path)
		b.stats.Skipped++
	case errors.Is(err, naming.ErrNamespaceExhausted):
		b.logger.Warn("No free name, leaving file as is", "path", item.Path, "error", err)
		b.stats.Skipped++
	case errors.Is(err, probe.ErrNoValue):
		b.logger.Warn("Incomplete probe data, leaving video as is", "path", item.Path, "error", err)
		b.stats.Skipped++
	default:
		b.logger.Error("Failed to process file", "path", item.Path, "kind", item.Kind, "error", err)
		b.stats.Failed++
	}
}

func (b *batch) replace(item lib.MediaItem, path string) {
	if b.settings.DryRun {
		return
	}
	moved, ok := lib.NewMediaItem(path)
	if !ok {
		moved = lib.MediaItem{Path: path, Kind: item.Kind, Ext: strings.ToLower(filepath.Ext(path))}
	}
	list, err := b.list.Replace(item.Path, moved)
	if err != nil {
		b.logger.Error("Invariant violated", "path", item.Path, "error", err)
		b.stats.Failed++
		return
	}
	b.list = list
}

// deleteTrash removes files Android leaves behind for deleted or unfinished
// captures.
func (b *batch) deleteTrash() {
	for _, item := range b.list.Items() {
		if !isTrash(item.Name()) {
			continue
		}

		b.logger.Info("Delete trashed file", "path", item.Path)
		if !b.settings.DryRun {
			if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
				b.logger.Error("Failed to delete trashed file", "path", item.Path, "error", err)
				b.stats.Failed++
				continue
			}
		}

		list, err := b.list.Remove(item.Path)
		if err != nil {
			b.logger.Error("Invariant violated", "path", item.Path, "error", err)
			b.stats.Failed++
			continue
		}
		b.list = list
		b.stats.Deleted++
	}
}

func isTrash(name string) bool {
	for _, prefix := range trashPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// outputDir mirrors the item's directory, relative to the input root, under
// the output root.
func (c *Classifier) outputDir(path string) (string, error) {
	rel, err := filepath.Rel(c.inputRoot, filepath.Dir(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", &lib.InvariantError{Op: "output_dir", Path: path, Err: fmt.Errorf("outside of %s", c.inputRoot)}
	}
	return filepath.Join(c.outputRoot, rel), nil
}

// existingCopy looks for an earlier keep_original copy of source: a file
// under the canonical name, or a suffixed one, with the same size and
// modification time.
func (b *batch) existingCopy(source, destDir string, ts time.Time, ext string) (string, bool) {
	src, err := os.Stat(source)
	if err != nil {
		return "", false
	}

	base := filepath.Join(destDir, b.namer.Base(ts))
	ext = naming.NormalizeExt(ext)
	candidates := []string{base + ext}
	for i := 0; i < naming.MaxSuffixes; i++ {
		candidates = append(candidates, base+string(rune('a'+i))+ext)
	}

	for _, candidate := range candidates {
		if candidate == source {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.Size() == src.Size() && info.ModTime().Equal(src.ModTime()) {
			return candidate, true
		}
	}
	return "", false
}

// nameForCopy names the copy made with keep_original. A source that already
// carries its canonical name, suffixed or not, keeps it: its own path comes
// back, as with NameFor.
func (b *batch) nameForCopy(source, destDir string, ts time.Time, ext string) (string, error) {
	dest, err := b.namer.NameFor(source, destDir, ts, ext)
	if err != nil || dest == source {
		return dest, err
	}
	b.namer.Release(dest)
	return b.namer.NameForCopy(source, destDir, ts, ext)
}

// place moves (or copies, with keep_original) source to dest.
func (b *batch) place(kind, source, dest string) (string, outcome, error) {
	if b.settings.KeepOriginal {
		b.logger.Info("Copy "+kind, "from", filepath.Base(source), "to", dest)
		if !b.settings.DryRun {
			if err := lib.CopyFile(source, dest); err != nil {
				b.namer.Release(dest)
				return "", 0, fmt.Errorf("failed to copy %s: %w", kind, err)
			}
		}
		return source, outcomeCopied, nil
	}

	b.logger.Info("Rename "+kind, "from", filepath.Base(source), "to", dest)
	if !b.settings.DryRun {
		if err := lib.MoveFile(source, dest); err != nil {
			b.namer.Release(dest)
			return "", 0, fmt.Errorf("failed to rename %s: %w", kind, err)
		}
	}
	return dest, outcomeRenamed, nil
}

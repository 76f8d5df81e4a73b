package lib

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

type FileScanner struct {
	rootDir string
	exclude []*regexp.Regexp
}

func NewFileScanner(rootDir string, exclude []*regexp.Regexp) *FileScanner {
	return &FileScanner{rootDir: rootDir, exclude: exclude}
}

// Scan recursively finds all pictures and videos under the root directory.
// Paths whose root-relative form matches an exclude pattern are skipped.
func (fs *FileScanner) Scan(ctx context.Context) (WorkList, error) {
	slog.Debug("Starting media file scan", "rootDir", fs.rootDir)

	var items []MediaItem

	err := filepath.Walk(fs.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			slog.Warn("Error accessing path", "path", path, "error", err)
			return nil // Continue walking despite individual file errors
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			return nil
		}

		if rel, relErr := filepath.Rel(fs.rootDir, path); relErr == nil && fs.isExcluded(rel) {
			slog.Info("Exclude file because of exclude pattern", "path", rel)
			return nil
		}

		if strings.HasPrefix(info.Name(), TempPrefix) {
			slog.Debug("Ignoring leftover encoder output", "path", path)
			return nil
		}

		absPath, err := filepath.Abs(path)
		if err != nil {
			absPath = path
		}

		if item, ok := NewMediaItem(absPath); ok {
			items = append(items, item)
			slog.Debug("Found media file", "path", absPath, "kind", item.Kind, "size", info.Size())
		}
		return nil
	})

	if err != nil {
		return WorkList{}, err
	}

	list := NewWorkList(items)
	slog.Info("Media file scan completed",
		"pictures", len(list.Pictures()),
		"videos", len(list.Videos()))
	return list, nil
}

func (fs *FileScanner) isExcluded(rel string) bool {
	for _, re := range fs.exclude {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

package lib

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// renameFunc is swapped in tests to simulate EXDEV.
var renameFunc = os.Rename

// FileTimes holds the timestamps a move or copy should carry over.
type FileTimes struct {
	Access  time.Time
	Modify  time.Time
	Created time.Time
}

// MoveFile renames src to dst, creating dst's parent directory. When the two
// paths live on different filesystems it falls back to copy and delete.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	err := renameFunc(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return err
	}

	slog.Debug("Cross-device move, copying instead", "src", src, "dst", dst)
	if err := CopyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source after copy: %w", err)
	}
	return nil
}

// CopyFile copies src to dst and carries over access and modification times.
func CopyFile(src, dst string) error {
	times, err := StatTimes(src)
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}

	return os.Chtimes(dst, times.Access, times.Modify)
}

// FileExists reports whether something is present at path.
func FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func isCrossDevice(err error) bool {
	if errors.Is(err, syscall.EXDEV) {
		return true
	}
	var le *os.LinkError
	return errors.As(err, &le) && errors.Is(le.Err, syscall.EXDEV)
}

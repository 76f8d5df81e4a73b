//go:build !linux

package lib

import "os"

// StatTimes falls back to the modification time for every field on platforms
// without statx.
func StatTimes(path string) (FileTimes, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileTimes{}, err
	}
	mtime := info.ModTime()
	return FileTimes{Access: mtime, Modify: mtime, Created: mtime}, nil
}

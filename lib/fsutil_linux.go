//go:build linux

package lib

import (
	"time"

	"golang.org/x/sys/unix"
)

// StatTimes reads access, modification and creation times with statx.
// Created falls back to the inode change time when the filesystem does not
// record a birth time.
func StatTimes(path string) (FileTimes, error) {
	var stx unix.Statx_t
	mask := unix.STATX_ATIME | unix.STATX_MTIME | unix.STATX_CTIME | unix.STATX_BTIME
	if err := unix.Statx(unix.AT_FDCWD, path, 0, mask, &stx); err != nil {
		return FileTimes{}, err
	}

	times := FileTimes{
		Access:  statxTime(stx.Atime),
		Modify:  statxTime(stx.Mtime),
		Created: statxTime(stx.Ctime),
	}
	if stx.Mask&unix.STATX_BTIME != 0 && stx.Btime.Sec != 0 {
		times.Created = statxTime(stx.Btime)
	}
	return times, nil
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

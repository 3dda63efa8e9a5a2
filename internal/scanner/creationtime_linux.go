//go:build linux

package scanner

import (
	"os"
	"syscall"
	"time"
)

// creationTime approximates filesystem creation time. Linux's standard
// stat(2) does not expose a reliable birth time in the general case, so
// this falls back to the inode's last status-change time (ctime), which is
// the closest portable approximation available without statx(2).
func creationTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
	}
	return info.ModTime()
}

//go:build !windows

package watch

import (
	"os"
	"syscall"
)

// inodeOf extracts the inode number so rotation (replace-by-rename) can be
// told apart from truncation (same inode, shorter file).
func inodeOf(info os.FileInfo) uint64 {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(stat.Ino)
}

//go:build windows

package watch

import "os"

// inodeOf has no portable equivalent on Windows; rotation detection there
// falls back to size comparison alone.
func inodeOf(info os.FileInfo) uint64 {
	return 0
}

//go:build !windows

package diskspace

import (
	"path/filepath"
	"syscall"
)

// Available returns the free bytes on the filesystem containing path,
// or 0 when it cannot be determined. The containing directory is
// statted since the target itself may not exist yet.
func Available(path string) int64 {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(filepath.Dir(path), &stat); err != nil {
		return 0
	}
	// Bavail is what non-root users can actually use.
	return int64(stat.Bavail) * int64(stat.Bsize)
}

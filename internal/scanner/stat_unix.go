//go:build !windows

package scanner

import (
	"os"
	"syscall"
)

// statInfo holds platform-specific file metadata.
type statInfo struct {
	diskUsage int64
	ok        bool // true if platform stat was available
}

// getStatInfo reads allocated blocks from the lstat result.
func getStatInfo(info os.FileInfo) statInfo {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return statInfo{diskUsage: info.Size()}
	}
	return statInfo{
		diskUsage: int64(stat.Blocks) * 512,
		ok:        true,
	}
}

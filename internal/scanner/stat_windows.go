//go:build windows

package scanner

import "os"

// statInfo holds platform-specific file metadata.
type statInfo struct {
	diskUsage int64
	ok        bool // true if platform stat was available
}

// getStatInfo on Windows falls back to apparent size for disk usage.
func getStatInfo(info os.FileInfo) statInfo {
	return statInfo{diskUsage: info.Size()}
}

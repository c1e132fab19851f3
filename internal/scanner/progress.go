package scanner

import "time"

// Progress reports scanning progress.
type Progress struct {
	// CurrentPath is the directory currently being scanned.
	CurrentPath string
	// FilesScanned is the total files counted so far.
	FilesScanned int64
	// DirsScanned is the total directories listed so far.
	DirsScanned int64
	// BytesFound is the total bytes found so far.
	BytesFound int64
	// Errors is the count of unreadable entries.
	Errors int64
	// StartTime is when the walk began.
	StartTime time.Time
	// Duration is elapsed time.
	Duration time.Duration
}

// ItemsPerSecond returns the scan rate.
func (p Progress) ItemsPerSecond() float64 {
	if p.Duration.Seconds() == 0 {
		return 0
	}
	return float64(p.FilesScanned+p.DirsScanned) / p.Duration.Seconds()
}

// Describe is a one-line status for display.
func (p Progress) Describe() string {
	if p.CurrentPath == "" {
		return "Scanning"
	}
	return "Scanning " + p.CurrentPath
}

// sendProgress delivers p unless the receiver is not keeping up.
func sendProgress(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
		// Drop if channel full
	}
}

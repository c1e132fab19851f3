package util

import (
	"fmt"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

// FormatSize returns a human-readable size string in binary units.
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseSize accepts "10 MB", "1GiB", "512" and similar.
func ParseSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > uint64(1<<63-1) {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}

// FormatCount returns n with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// Percent returns the percentage of part relative to total.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TruncateString cuts s to at most width terminal cells, ending with "…"
// when something was removed. Escape sequences do not count toward width.
func TruncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

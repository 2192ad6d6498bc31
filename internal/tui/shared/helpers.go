package shared

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// ============================================================================
// Formatting Functions
// Shared by the live view, the plain printer and the reports
// ============================================================================

// FormatBytes formats bytes into human-readable format (e.g., "1.5 GiB")
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.IBytes(uint64(bytes))
}

// FormatCount formats a count with thousands separators (e.g., "1,234,567")
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatDuration formats duration into human-readable format (e.g., "2m 30s")
func FormatDuration(duration time.Duration) string {
	duration = duration.Round(time.Second)
	hours := duration / time.Hour
	duration %= time.Hour
	minutes := duration / time.Minute
	duration %= time.Minute
	seconds := duration / time.Second

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}

	return fmt.Sprintf("%ds", seconds)
}

// FormatRate formats throughput into human-readable format (e.g., "5.2 MiB/s")
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}

	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// TruncatePath shortens path to maxWidth by cutting the middle, keeping the
// file name visible.
func TruncatePath(path string, maxWidth int) string {
	maxWidth = max(maxWidth, MinPathDisplayWidth)

	runes := []rune(path)
	if len(runes) <= maxWidth {
		return path
	}

	keep := maxWidth - ProgressEllipsisLength
	head := keep / 3 //nolint:mnd // a third of the room for the leading directories
	tail := keep - head

	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}

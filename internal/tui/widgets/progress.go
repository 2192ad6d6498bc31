package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"

	mprogress "github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// NewProgressWidget creates a widget that displays one pipeline's progress.
// Returns a closure that formats the latest progress reading.
func NewProgressWidget(bar progress.Model, getProgress func() (mprogress.Progress, bool)) func() string {
	return func() string {
		p, ok := getProgress()
		if !ok || !p.Known {
			return "Files: " + shared.FormatCount(p.FilesDone) + "\nWaiting for enumeration..."
		}

		var b strings.Builder

		b.WriteString(shared.RenderProgress(bar, p.Percent/shared.ProgressPercentageScale))
		b.WriteString("\n")

		fmt.Fprintf(&b, "Files: %s / %s (%.1f%%)\n",
			shared.FormatCount(p.FilesDone),
			shared.FormatCount(p.TotalFiles),
			p.Percent)

		fmt.Fprintf(&b, "Bytes: %s / %s", shared.FormatBytes(p.BytesDone), shared.FormatBytes(p.TotalBytes))

		if p.ByFiles {
			b.WriteString(shared.RenderDim(" (by file count)"))
		}

		b.WriteString("\n")
		b.WriteString(rateLine(p))

		return b.String()
	}
}

func rateLine(p mprogress.Progress) string {
	line := "Speed: " + shared.FormatRate(p.BytesPerSecond)
	if p.FilesPerSecond > 0 {
		line += fmt.Sprintf(" (%.1f files/s)", p.FilesPerSecond)
	}

	if p.HasETA {
		line += "  ETA: " + shared.FormatDuration(p.ETA)
	}

	return line
}

package report

import (
	"io"

	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// Status prints one row per inspected manifest.
func Status(w io.Writer, inspections []*manifest.Inspection) {
	heading(w, "Manifest status")

	table := newTable(w, "Manifest", "Algorithm", "Settled", "Bytes", "Entries", "Retries", "State")

	for _, info := range inspections {
		if !info.Exists {
			table.Append([]string{info.Files.Manifest, "-", "-", "-", "-", "-", "not started"})
			continue
		}

		table.Append([]string{
			info.Files.Manifest,
			info.Header.Algorithm.String(),
			shared.FormatCount(info.Settled),
			shared.FormatBytes(info.SettledBytes),
			shared.FormatCount(info.Entries),
			shared.FormatCount(info.PendingRetries),
			stateText(info),
		})
	}

	table.Render()

	for _, info := range inspections {
		if info.Complete != nil {
			line(w, "%s %s completed %s: %s files, %s",
				shared.SuccessSymbol(), info.Files.Manifest,
				info.Complete.CompletedAt.Format("2006-01-02 15:04:05"),
				shared.FormatCount(info.Complete.Files), shared.FormatBytes(info.Complete.Bytes))
		}
	}
}

func stateText(info *manifest.Inspection) string {
	switch {
	case info.Running:
		return "running"
	case info.Complete != nil:
		return shared.StateComplete
	default:
		return "partial"
	}
}

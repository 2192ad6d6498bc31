// Package report renders human-readable summaries of hashing sessions,
// comparisons, duplicate scans and manifest status.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/joe/migrate-verify/internal/tui/shared"
)

// Exported constants.
const (
	// DefaultDetailLimit caps rows in detail listings; zero means no cap.
	DefaultDetailLimit = 50
)

// newTable returns a borderless, left-aligned table like the rest of the CLI.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	return table
}

func heading(w io.Writer, text string) {
	_, _ = fmt.Fprintln(w, shared.RenderTitle(text))
}

func line(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

// moreLine reports how many rows a capped listing left out.
func moreLine(w io.Writer, total, limit int) {
	if limit > 0 && total > limit {
		line(w, "%s", shared.RenderDim(fmt.Sprintf("... and %s more", shared.FormatCount(total-limit))))
	}
}

func capped(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}

	return n
}

func indent(text string) string {
	return "  " + strings.ReplaceAll(strings.TrimSuffix(text, "\n"), "\n", "\n  ")
}

package report

import (
	"io"
	"strings"

	"github.com/joe/migrate-verify/internal/dupes"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// shortDigest is how much of a digest the duplicate table shows.
const shortDigest = 16

// Duplicates prints duplicate sets, largest waste first. With details every
// path of each listed set is printed under its row.
func Duplicates(w io.Writer, r *dupes.Report, details bool, limit int) {
	heading(w, "Duplicates")

	if r.Incomplete {
		line(w, "%s manifest is not complete; results cover only what has been hashed", shared.WarningSymbol())
	}

	if len(r.Sets) == 0 {
		line(w, "No duplicate content among %s files.", shared.FormatCount(r.Entries))
		return
	}

	table := newTable(w, "Digest", "Size", "Copies", "Wasted")
	for _, set := range r.Sets[:capped(len(r.Sets), limit)] {
		table.Append([]string{
			truncateDigest(set.Digest),
			shared.FormatBytes(set.Size),
			shared.FormatCount(set.Count()),
			shared.FormatBytes(set.Wasted()),
		})
	}
	table.Render()
	moreLine(w, len(r.Sets), limit)

	if details {
		for _, set := range r.Sets[:capped(len(r.Sets), limit)] {
			line(w, "\n%s", shared.RenderLabel(truncateDigest(set.Digest)))
			line(w, "%s", indent(strings.Join(set.Paths, "\n")))
		}
	}

	line(w, "\n%s duplicate set(s) across %s files, %s wasted",
		shared.FormatCount(len(r.Sets)), shared.FormatCount(r.Entries), shared.FormatBytes(r.Wasted))
}

func truncateDigest(d string) string {
	if len(d) <= shortDigest {
		return d
	}

	return d[:shortDigest]
}

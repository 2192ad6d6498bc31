package report

import (
	"io"

	"github.com/joe/migrate-verify/internal/compare"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// Comparison prints the verdict and class counts of a comparison, followed
// by the offending paths when details were collected.
func Comparison(w io.Writer, r *compare.Report, limit int) {
	heading(w, "Comparison")

	line(w, "Algorithm: %s", r.Algorithm)
	line(w, "Paths: %s source, %s destination",
		shared.FormatCount(r.SourcePaths), shared.FormatCount(r.DestPaths))

	if r.SourceSkipped > 0 || r.DestSkipped > 0 {
		line(w, "%s malformed manifest lines skipped: %d source, %d destination",
			shared.WarningSymbol(), r.SourceSkipped, r.DestSkipped)
	}

	table := newTable(w, "Class", "Count", "Bytes")
	table.Append([]string{"matched", shared.FormatCount(r.Matched), shared.FormatBytes(r.MatchedBytes)})
	table.Append([]string{"missing", shared.FormatCount(r.Missing), shared.FormatBytes(r.MissingBytes)})
	table.Append([]string{"extra", shared.FormatCount(r.Extra), shared.FormatBytes(r.ExtraBytes)})
	table.Append([]string{"corrupted", shared.FormatCount(r.Corrupted), "-"})
	table.Render()

	if r.Details != nil {
		comparisonDetails(w, r.Details, limit)
	}

	if r.Status == compare.StatusVerified {
		line(w, "%s", shared.RenderSuccess(shared.SuccessSymbol()+" "+string(r.Status)))
	} else {
		line(w, "%s", shared.RenderError(shared.ErrorSymbol()+" "+string(r.Status)))
	}
}

func comparisonDetails(w io.Writer, d *compare.Details, limit int) {
	if len(d.Corrupted) > 0 {
		line(w, "\n%s", shared.RenderLabel("Corrupted (same path, different content)"))
		table := newTable(w, "Path", "Source digest", "Dest digest", "Source size", "Dest size")
		for _, c := range d.Corrupted[:capped(len(d.Corrupted), limit)] {
			table.Append([]string{c.Path, c.SourceDigest, c.DestDigest,
				shared.FormatBytes(c.SourceSize), shared.FormatBytes(c.DestSize)})
		}
		table.Render()
		moreLine(w, len(d.Corrupted), limit)
	}

	if len(d.Missing) > 0 {
		line(w, "\n%s", shared.RenderLabel("Missing (in source only)"))
		table := newTable(w, "Path", "Digest", "Size")
		for _, e := range d.Missing[:capped(len(d.Missing), limit)] {
			table.Append([]string{e.Path, e.Digest, shared.FormatBytes(e.Size)})
		}
		table.Render()
		moreLine(w, len(d.Missing), limit)
	}

	if len(d.Extra) > 0 {
		line(w, "\n%s", shared.RenderLabel("Extra (in destination only)"))
		table := newTable(w, "Path", "Digest", "Size")
		for _, e := range d.Extra[:capped(len(d.Extra), limit)] {
			table.Append([]string{e.Path, e.Digest, shared.FormatBytes(e.Size)})
		}
		table.Render()
		moreLine(w, len(d.Extra), limit)
	}
}

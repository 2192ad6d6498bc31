package report

import (
	"errors"
	"io"
	"strconv"

	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/session"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// Session prints the end-of-run summary of a hashing session: one table row
// per pipeline, then per-file failures and enumeration problems.
func Session(w io.Writer, outcome session.Outcome) {
	heading(w, "Hashing summary")

	table := newTable(w, "Pipeline", "Files", "Bytes", "Hashed", "Retried", "Failed", "Resumed at", "Workers", "Result")

	for _, p := range outcome.Pipelines {
		r := p.Result
		if r == nil {
			table.Append([]string{p.Label, "-", "-", "-", "-", "-", "-", "-", resultText(p.Err)})
			continue
		}

		table.Append([]string{
			p.Label,
			shared.FormatCount(r.Total),
			shared.FormatBytes(r.TotalBytes),
			shared.FormatCount(r.Hashed),
			shared.FormatCount(r.Retried),
			shared.FormatCount(r.Failed),
			shared.FormatCount(r.Offset),
			strconv.Itoa(r.Workers) + " " + r.Media.String(),
			resultText(p.Err),
		})
	}

	table.Render()

	for _, p := range outcome.Pipelines {
		pipelineDetails(w, p)
	}

	line(w, "Elapsed: %s", shared.FormatDuration(outcome.Duration))
}

func pipelineDetails(w io.Writer, p session.PipelineOutcome) {
	if p.Err != nil && !errors.Is(p.Err, hashengine.ErrFilesSkipped) {
		line(w, "%s", shared.RenderError(shared.ErrorSymbol()+" "+p.Label+": "+p.Err.Error()))
	}

	r := p.Result
	if r == nil {
		return
	}

	if len(r.Failures) > 0 {
		line(w, "%s", shared.RenderWarning(p.Label+" failures ("+shared.RenderCategoryTally(r.Failures)+"), retried on the next run:"))
		_, _ = io.WriteString(w, shared.RenderFailureList(r.Failures, shared.MaxFailuresShown))
	}

	if r.RetriesPending > 0 {
		line(w, "%s %s: %s file(s) still waiting in %s",
			shared.WarningSymbol(), p.Label, shared.FormatCount(r.RetriesPending), r.Manifest+".retry")
	}

	if len(r.Problems) > 0 {
		line(w, "%s %s: %d unreadable subtree(s) skipped during enumeration:", shared.WarningSymbol(), p.Label, len(r.Problems))
		for i, problem := range r.Problems {
			if i >= shared.MaxFailuresShown {
				moreLine(w, len(r.Problems), shared.MaxFailuresShown)
				break
			}
			line(w, "  %v", problem)
		}
	}

	if r.Complete {
		line(w, "%s %s manifest complete: %s", shared.SuccessSymbol(), p.Label, r.Manifest)
	}
}

func resultText(err error) string {
	switch {
	case err == nil:
		return shared.StateComplete
	case errors.Is(err, hashengine.ErrCancelled):
		return shared.StateCancelled
	case errors.Is(err, hashengine.ErrFilesSkipped):
		return shared.StateSkipped
	default:
		return shared.StateError
	}
}

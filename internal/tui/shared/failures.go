package shared

import (
	"fmt"
	"strings"

	verrors "github.com/joe/migrate-verify/pkg/errors"
)

// Failure list limits.
const (
	// MaxFailuresShown caps the failures printed in a summary.
	MaxFailuresShown = 10
	// MaxSuggestionsShown caps the suggestions printed under each failure.
	MaxSuggestionsShown = 2
)

// RenderFailureList renders per-file failures with their category and a few
// suggestions. Failures beyond limit are summarised in a trailing line.
func RenderFailureList(failures []error, limit int) string {
	if len(failures) == 0 {
		return ""
	}

	if limit <= 0 {
		limit = MaxFailuresShown
	}

	var b strings.Builder

	for i, err := range failures {
		if i >= limit {
			b.WriteString(RenderDim(fmt.Sprintf("  ... and %d more", len(failures)-limit)))
			b.WriteString("\n")

			break
		}

		b.WriteString(renderFailure(err))
	}

	return b.String()
}

// RenderCategoryTally renders "permission: 3, vanished: 1" style counts.
func RenderCategoryTally(failures []error) string {
	tally := verrors.Tally(failures)
	if len(tally) == 0 {
		return ""
	}

	parts := make([]string, 0, len(tally))
	for _, category := range verrors.Categories() {
		if n := tally[category]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", category, n))
		}
	}

	return strings.Join(parts, ", ")
}

func renderFailure(err error) string {
	var b strings.Builder

	actionable, ok := verrors.AsActionable(err)
	if !ok {
		b.WriteString(FileItemErrorStyle().Render(fmt.Sprintf("  %s %v", ErrorSymbol(), err)))
		b.WriteString("\n")

		return b.String()
	}

	line := fmt.Sprintf("  %s %s: %s", ErrorSymbol(), actionable.AffectedPath(), actionable.Category())
	b.WriteString(FileItemErrorStyle().Render(line))
	b.WriteString("\n")
	b.WriteString(RenderDim("      " + actionable.OriginalError()))
	b.WriteString("\n")

	suggestions := actionable.Suggestions()
	for i, s := range suggestions {
		if i >= MaxSuggestionsShown {
			break
		}

		b.WriteString(RenderDim("      - " + s))
		b.WriteString("\n")
	}

	return b.String()
}

package tui

import (
	"fmt"
	"strings"

	"github.com/joe/migrate-verify/internal/hashengine"
	mprogress "github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/internal/tui/shared"
	"github.com/joe/migrate-verify/internal/tui/widgets"
)

// twoColumnMinWidth is the narrowest terminal that shows lanes side by side.
const twoColumnMinWidth = 110

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(shared.RenderTitle("migrate-verify"))
	b.WriteString("\n")

	boxes := make([]string, 0, len(m.lanes))
	for _, l := range m.lanes {
		boxes = append(boxes, m.renderLane(l))
	}

	switch {
	case len(boxes) == 2 && m.width >= twoColumnMinWidth: //nolint:mnd // source and dest
		b.WriteString(shared.RenderTwoColumnLayout(boxes[0], boxes[1], m.width))
	default:
		b.WriteString(strings.Join(boxes, "\n"))
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	b.WriteString("\n")

	return b.String()
}

func (m Model) boxWidth() int {
	if len(m.lanes) == 2 && m.width >= twoColumnMinWidth { //nolint:mnd // source and dest
		return m.width / 2 //nolint:mnd // halves
	}

	return m.width
}

func (m Model) renderLane(l *laneState) string {
	var status *hashengine.StatusSnapshot
	if l.Status != nil {
		snap := l.Status.Snapshot()
		status = &snap
	}

	phase := hashengine.PhaseStarting
	if status != nil {
		phase = status.Phase
	}

	width := m.boxWidth()

	var b strings.Builder

	b.WriteString(shared.RenderDim(l.Root))
	b.WriteString("\n")
	b.WriteString(widgets.NewPhaseWidget(phase, l.outcome)())
	b.WriteString("\n\n")
	b.WriteString(widgets.NewProgressWidget(l.bar, func() (mprogress.Progress, bool) { return m.progressFor(l.Label) })())
	b.WriteString("\n")

	if l.workers > 0 {
		b.WriteString(shared.RenderLabel("Workers: "))
		fmt.Fprintf(&b, "%d (%s)", l.workers, l.media)

		if l.offset > 0 {
			fmt.Fprintf(&b, ", resumed at %s", shared.FormatCount(l.offset))
		}

		if l.retries > 0 {
			fmt.Fprintf(&b, ", %d retries", l.retries)
		}

		b.WriteString("\n")
	}

	if l.outcome == "" {
		b.WriteString(widgets.NewWorkersWidget(func() *hashengine.StatusSnapshot { return status }, width-8, m.now)()) //nolint:mnd // box chrome
		b.WriteString("\n")
	}

	if l.failed > 0 {
		b.WriteString(shared.RenderWarning(fmt.Sprintf("%s %d file(s) failed, queued for retry", shared.WarningSymbol(), l.failed)))
		b.WriteString("\n")
	}

	if l.err != nil {
		b.WriteString(shared.RenderError(l.err.Error()))
		b.WriteString("\n")
	}

	return shared.RenderWidgetBox(l.Label, strings.TrimSuffix(b.String(), "\n"), width)
}

func (m Model) renderFooter() string {
	overall := m.snapshot.Overall
	line := fmt.Sprintf("Elapsed: %s", shared.FormatDuration(m.snapshot.Elapsed))

	if overall.Known {
		line += fmt.Sprintf("  Overall: %.1f%%", overall.Percent)
	}

	if overall.HasETA {
		line += "  ETA: " + shared.FormatDuration(overall.ETA)
	}

	switch {
	case m.done:
		return line + "\n" + shared.RenderDim("Finished.")
	case m.stopping:
		return line + "\n" + shared.RenderWarning("Stopping: waiting for in-flight files, progress is kept")
	default:
		return line + "\n" + shared.RenderDim("Press q or ctrl+c to stop; a later run resumes")
	}
}

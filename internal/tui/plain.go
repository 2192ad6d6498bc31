package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/migrate-verify/internal/hashengine"
	mprogress "github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// Plain prints progress as one line per pipeline per snapshot. It is used
// when stdout is not a terminal or --plain is given.
type Plain struct {
	Out io.Writer
}

// Run prints messages until msgs is closed.
func (p Plain) Run(msgs <-chan tea.Msg) {
	for msg := range msgs {
		switch msg := msg.(type) {
		case shared.SnapshotMsg:
			for _, pipeline := range msg.Snapshot.Pipelines {
				p.printf("%s\n", progressLine(pipeline))
			}
		case shared.EngineEventMsg:
			p.event(msg.Event)
		}
	}
}

func (p Plain) event(event hashengine.Event) {
	switch ev := event.(type) {
	case hashengine.EnumerationComplete:
		p.printf("[%s] enumerated %s files, %s\n", ev.Label, shared.FormatCount(ev.Files), shared.FormatBytes(ev.Bytes))
	case hashengine.HashStarted:
		p.printf("[%s] hashing with %d workers (%s), resuming at %s, %d retries queued\n",
			ev.Label, ev.Workers, ev.Media, shared.FormatCount(ev.Offset), ev.Retries)
	case hashengine.FileFailed:
		p.printf("[%s] failed: %s: %v\n", ev.Label, ev.Path, ev.Err)
	case hashengine.ErrorOccurred:
		p.printf("[%s] error during %s: %v\n", ev.Label, ev.Phase, ev.Err)
	case hashengine.PipelineComplete:
		p.printf("[%s] %s\n", ev.Label, outcomeOf(ev.Err))
	}
}

func (p Plain) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.Out, format, args...)
}

func progressLine(pr mprogress.Progress) string {
	line := fmt.Sprintf("[%s] %s", pr.Label, shared.FormatCount(pr.FilesDone))

	if pr.Known {
		line += fmt.Sprintf("/%s files, %s/%s (%.1f%%)",
			shared.FormatCount(pr.TotalFiles),
			shared.FormatBytes(pr.BytesDone),
			shared.FormatBytes(pr.TotalBytes),
			pr.Percent)
	} else {
		line += " files, " + shared.FormatBytes(pr.BytesDone)
	}

	line += ", " + shared.FormatRate(pr.BytesPerSecond)

	if pr.HasETA {
		line += ", ETA " + shared.FormatDuration(pr.ETA)
	}

	return line
}

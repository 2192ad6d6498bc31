package widgets

import (
	"fmt"
	"strings"
	"time"

	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

const maxVisibleWorkers = 8

// NewWorkersWidget creates a widget that lists what each worker is hashing.
// now is injected so elapsed times are testable.
func NewWorkersWidget(getStatus func() *hashengine.StatusSnapshot, width int, now func() time.Time) func() string {
	return func() string {
		status := getStatus()
		if status == nil || len(status.Current) == 0 {
			return shared.RenderDim("idle")
		}

		var b strings.Builder

		for i, m := range status.Current {
			if i >= maxVisibleWorkers {
				fmt.Fprintf(&b, "  ... %d more\n", len(status.Current)-maxVisibleWorkers)

				break
			}

			elapsed := now().Sub(m.Since).Truncate(time.Second)
			prefix := fmt.Sprintf("#%d %9s %6s ", m.Worker, shared.FormatBytes(m.Size), elapsed)
			room := width - len(prefix)

			b.WriteString(shared.FileItemActiveStyle().Render(prefix + shared.TruncatePath(m.Path, room)))
			b.WriteString("\n")
		}

		return strings.TrimSuffix(b.String(), "\n")
	}
}

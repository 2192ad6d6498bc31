package widgets

import (
	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// NewPhaseWidget creates a widget that displays a pipeline's phase.
// outcome is empty while the pipeline runs.
func NewPhaseWidget(phase, outcome string) func() string {
	return func() string {
		switch outcome {
		case shared.StateComplete:
			return shared.RenderSuccess(shared.SuccessSymbol() + " Complete")
		case shared.StateSkipped:
			return shared.RenderWarning(shared.WarningSymbol() + " Finished with failures, rerun to retry")
		case shared.StateCancelled:
			return shared.RenderWarning(shared.WarningSymbol() + " Stopped, rerun to resume")
		case shared.StateError:
			return shared.RenderError(shared.ErrorSymbol() + " Failed")
		}

		switch phase {
		case hashengine.PhaseEnumerating:
			return "Enumerating files..."
		case hashengine.PhaseHashing:
			return "Hashing files..."
		case hashengine.PhaseDone:
			return "Finishing..."
		default:
			return "Starting..."
		}
	}
}

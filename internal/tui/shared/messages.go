package shared

import (
	"github.com/joe/migrate-verify/internal/progress"
)

// SnapshotMsg carries a progress snapshot from the aggregator.
type SnapshotMsg struct {
	Snapshot progress.Snapshot
}

// AllDoneMsg is sent once every pipeline has returned.
type AllDoneMsg struct {
	Err error
}

// BridgeClosedMsg is returned by ListenCmd after the bridge is closed.
type BridgeClosedMsg struct{}

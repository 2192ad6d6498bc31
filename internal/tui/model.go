// Package tui shows the live progress of a hashing session, either as a
// full-screen bubbletea program or as plain lines for logs and pipes.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/media"
	mprogress "github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// StatusSource is the live status of one pipeline. *hashengine.Status
// implements it.
type StatusSource interface {
	Snapshot() hashengine.StatusSnapshot
}

// Lane is one pipeline shown on screen.
type Lane struct {
	Label  string
	Root   string
	Status StatusSource
}

// laneState is what the model has learned about a lane from events.
type laneState struct {
	Lane

	workers int
	media   media.Kind
	offset  int
	retries int
	failed  int
	outcome string
	err     error
	bar     progress.Model
}

// Model is the bubbletea model for a hashing session.
type Model struct {
	bridge *shared.EventBridge
	cancel context.CancelFunc
	now    func() time.Time

	lanes    []*laneState
	snapshot mprogress.Snapshot
	started  time.Time

	width    int
	stopping bool
	done     bool
	err      error
}

// NewModel creates a model reading from bridge. cancel is called when the
// operator asks to stop; the model keeps running until the pipelines have
// drained and the bridge is closed.
func NewModel(bridge *shared.EventBridge, cancel context.CancelFunc, lanes ...Lane) Model {
	m := Model{
		bridge:  bridge,
		cancel:  cancel,
		now:     time.Now,
		started: time.Now(),
		width:   shared.MaxProgressBarWidth,
	}

	for _, lane := range lanes {
		m.lanes = append(m.lanes, &laneState{Lane: lane, bar: shared.NewProgressModel(shared.ProgressBarWidth)})
	}

	return m
}

// Done reports whether every pipeline has finished.
func (m Model) Done() bool {
	return m.done
}

// Stopping reports whether the operator asked to stop.
func (m Model) Stopping() bool {
	return m.stopping
}

func (m Model) lane(label string) *laneState {
	for _, l := range m.lanes {
		if l.Label == label {
			return l
		}
	}

	return nil
}

func (m Model) progressFor(label string) (mprogress.Progress, bool) {
	for _, p := range m.snapshot.Pipelines {
		if p.Label == label {
			return p, true
		}
	}

	return mprogress.Progress{}, false
}

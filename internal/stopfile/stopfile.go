// Package stopfile turns an operator's request to stop into context
// cancellation. A request is either the presence of a sentinel file, which
// any process or user can create, or an interrupt signal.
package stopfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Exported constants.
const (
	// DefaultName is the sentinel file name inside the state directory.
	DefaultName = "STOP"
	// DefaultInterval is how often the sentinel is checked.
	DefaultInterval = time.Second
)

// Exported variables.
var (
	ErrStopFile  = errors.New("stop file present")
	ErrInterrupt = errors.New("interrupted")
)

// Watcher cancels a context when the sentinel file appears or a signal
// arrives. Only existence matters; the file's content is ignored.
type Watcher struct {
	Path     string
	Interval time.Duration
	Signals  []os.Signal
}

// New returns a watcher for path with the default interval that also
// listens for SIGINT and SIGTERM.
func New(path string) *Watcher {
	return &Watcher{
		Path:     path,
		Interval: DefaultInterval,
		Signals:  []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Present reports whether the sentinel exists right now.
func (w *Watcher) Present() bool {
	if w.Path == "" {
		return false
	}

	_, err := os.Stat(w.Path)

	return err == nil
}

// Watch returns a context that is cancelled on the first stop request, with
// the cause retrievable through context.Cause. Call stop to release the
// watcher once the work is done.
func (w *Watcher) Watch(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancelCause(parent)

	var sigs chan os.Signal
	if len(w.Signals) > 0 {
		sigs = make(chan os.Signal, 1)
		signal.Notify(sigs, w.Signals...)
	}

	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	finished := make(chan struct{})

	go func() {
		defer close(finished)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if w.Present() {
				cancel(fmt.Errorf("%w: %s", ErrStopFile, w.Path))
				return
			}

			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				cancel(fmt.Errorf("%w: %s", ErrInterrupt, sig))
				return
			case <-ticker.C:
			}
		}
	}()

	return ctx, func() {
		cancel(context.Canceled)
		<-finished

		if sigs != nil {
			signal.Stop(sigs)
		}
	}
}

// Package session runs the source and destination pipelines side by side
// with a progress aggregator watching their durable logs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/logging"
	"github.com/joe/migrate-verify/internal/media"
	"github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/pkg/digest"
)

// Side is one tree to hash into one manifest.
type Side struct {
	Label    string
	Root     string
	Manifest string
}

// Config configures a session. Zero values fall back to pipeline defaults.
type Config struct {
	Sides     []Side
	Algorithm digest.Algorithm
	Media     media.Kind
	Workers   int
	Excludes  []string
	Tool      string
	Interval  time.Duration
}

// Session owns its pipelines and aggregator. Nothing is shared globally, so
// several sessions can run in one process (the tests do).
type Session struct {
	pipelines  []*hashengine.Pipeline
	aggregator *progress.Aggregator
	emitter    hashengine.EventEmitter
	publish    func(progress.Snapshot)
	log        *logging.Logger
	now        func() time.Time
}

// PipelineOutcome is what one pipeline returned.
type PipelineOutcome struct {
	Label  string
	Result *hashengine.Result
	Err    error
}

// Outcome is the result of a whole session.
type Outcome struct {
	Pipelines []PipelineOutcome
	Final     progress.Snapshot
	Duration  time.Duration
}

// New builds the pipelines for cfg and registers each manifest with the
// aggregator.
func New(cfg Config) *Session {
	s := &Session{
		aggregator: progress.NewAggregator(),
		now:        time.Now,
	}

	if cfg.Interval > 0 {
		s.aggregator.Interval = cfg.Interval
	}

	for _, side := range cfg.Sides {
		p := hashengine.NewPipeline(side.Label, side.Root, side.Manifest)
		p.Algorithm = cfg.Algorithm
		p.Media = cfg.Media
		p.Workers = cfg.Workers
		p.Excludes = cfg.Excludes
		p.Tool = cfg.Tool
		p.SetEventEmitter(&fanout{session: s})

		s.pipelines = append(s.pipelines, p)
		s.aggregator.Track(side.Label, side.Manifest)
	}

	return s
}

// Pipelines returns the session's pipelines, e.g. to adjust them before Run
// or to read their live status.
func (s *Session) Pipelines() []*hashengine.Pipeline {
	return s.pipelines
}

// Aggregator returns the progress aggregator.
func (s *Session) Aggregator() *progress.Aggregator {
	return s.aggregator
}

// SetEventEmitter forwards every pipeline event to emitter.
func (s *Session) SetEventEmitter(emitter hashengine.EventEmitter) {
	s.emitter = emitter
}

// OnSnapshot sets the callback for progress snapshots.
func (s *Session) OnSnapshot(publish func(progress.Snapshot)) {
	s.publish = publish
}

// SetLogger sets the session log for the session and its pipelines.
func (s *Session) SetLogger(l *logging.Logger) {
	s.log = l

	for _, p := range s.pipelines {
		p.SetLogger(l)
	}
}

// Run starts every pipeline concurrently and blocks until all have
// returned. A failing pipeline never stops the others; cancelling ctx stops
// them all, and the aggregator keeps polling until they have drained so the
// final snapshot matches the durable state.
func (s *Session) Run(ctx context.Context) Outcome {
	start := s.now()
	outcomes := make([]PipelineOutcome, len(s.pipelines))

	s.log.Logf("session started with %d pipeline(s)", len(s.pipelines))

	var wg sync.WaitGroup
	for i, p := range s.pipelines {
		wg.Go(func() {
			result, err := p.Run(ctx)
			outcomes[i] = PipelineOutcome{Label: p.Label, Result: result, Err: err}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	final := s.aggregator.Run(context.WithoutCancel(ctx), done, s.publish)
	<-done

	outcome := Outcome{Pipelines: outcomes, Final: final, Duration: s.now().Sub(start)}
	s.log.Logf("session finished in %s: %v", outcome.Duration.Round(time.Millisecond), outcome.Err())

	return outcome
}

// Err joins the pipeline errors, labelled.
func (o Outcome) Err() error {
	var errs []error

	for _, p := range o.Pipelines {
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Label, p.Err))
		}
	}

	return errors.Join(errs...)
}

// Cancelled reports that at least one pipeline stopped on request and none
// failed outright.
func (o Outcome) Cancelled() bool {
	cancelled := false

	for _, p := range o.Pipelines {
		switch {
		case p.Err == nil:
		case errors.Is(p.Err, hashengine.ErrCancelled):
			cancelled = true
		default:
			return false
		}
	}

	return cancelled
}

// fanout feeds pipeline events to the aggregator and the external emitter.
type fanout struct {
	session *Session
}

func (f *fanout) Emit(event hashengine.Event) {
	s := f.session

	switch ev := event.(type) {
	case hashengine.EnumerationComplete:
		s.aggregator.SetTotals(ev.Label, ev.Files, ev.Bytes)
	case hashengine.PipelineComplete:
		if ev.Err != nil {
			s.log.Logf("pipeline %s ended: %v", ev.Label, ev.Err)
		} else {
			s.log.Logf("pipeline %s ended cleanly", ev.Label)
		}
	}

	if s.emitter != nil {
		s.emitter.Emit(event)
	}
}

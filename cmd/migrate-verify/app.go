package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/migrate-verify/internal/compare"
	"github.com/joe/migrate-verify/internal/config"
	"github.com/joe/migrate-verify/internal/dupes"
	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/logging"
	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/internal/report"
	"github.com/joe/migrate-verify/internal/session"
	"github.com/joe/migrate-verify/internal/stopfile"
	"github.com/joe/migrate-verify/internal/tui"
	"github.com/joe/migrate-verify/internal/tui/shared"
)

// app runs one parsed command and maps its outcome to an exit code.
type app struct {
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
	log         *logging.Logger
}

func (a *app) run(ctx context.Context, cfg *config.Config) int {
	if cfg.LogPath != "" {
		log, err := logging.Open(cfg.LogPath)
		if err != nil {
			a.errorf("cannot open log: %v", err)
			return exitFailure
		}

		a.log = log
		defer func() { _ = log.Close() }()
	}

	switch {
	case cfg.Hash != nil:
		return a.hash(ctx, cfg.Hash)
	case cfg.Compare != nil:
		return a.compare(cfg.Compare)
	case cfg.Dupes != nil:
		return a.dupes(cfg.Dupes)
	case cfg.Status != nil:
		return a.status(cfg.Status)
	default:
		a.errorf("no subcommand")
		return exitUsage
	}
}

func (a *app) hash(parent context.Context, h *config.HashCmd) int {
	watcher := stopfile.New(h.StopFile)
	if watcher.Present() {
		a.errorf("stop file %s is present; remove it to start hashing", h.StopFile)
		return exitCancelled
	}

	ctx, stop := watcher.Watch(parent)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(session.Config{
		Sides:     sides(h),
		Algorithm: h.Algorithm,
		Media:     h.Media,
		Workers:   h.Workers,
		Excludes:  h.Exclude,
		Tool:      config.ProgramName + " " + config.ProgramVersion,
		Interval:  h.Interval,
	})
	sess.SetLogger(a.log)

	bridge := shared.NewEventBridge()
	sess.SetEventEmitter(bridge)
	sess.OnSnapshot(func(snap progress.Snapshot) {
		if snap.Final {
			bridge.SendFinal(shared.SnapshotMsg{Snapshot: snap})
			return
		}
		bridge.Send(shared.SnapshotMsg{Snapshot: snap})
	})

	outcomes := make(chan session.Outcome, 1)
	go func() {
		outcome := sess.Run(ctx)
		bridge.SendFinal(shared.AllDoneMsg{Err: outcome.Err()})
		bridge.Close()
		outcomes <- outcome
	}()

	if a.interactive && !h.Plain {
		lanes := make([]tui.Lane, 0, len(sess.Pipelines()))
		for _, p := range sess.Pipelines() {
			lanes = append(lanes, tui.Lane{Label: p.Label, Root: p.Root, Status: p.Status()})
		}

		program := tea.NewProgram(tui.NewModel(bridge, cancel, lanes...), tea.WithAltScreen(), tea.WithoutSignalHandler())
		if _, err := program.Run(); err != nil {
			a.errorf("display failed, hashing continues: %v", err)
		}
	} else {
		tui.Plain{Out: a.stdout}.Run(bridge.Subscribe())
	}
	bridge.Detach()

	outcome := <-outcomes
	report.Session(a.stdout, outcome)

	if cause := context.Cause(ctx); cause != nil && outcome.Cancelled() {
		a.errorf("stopped (%v); run the same command again to resume", cause)
	}

	switch {
	case outcome.Err() == nil:
		return exitOK
	case outcome.Cancelled():
		return exitCancelled
	default:
		return exitFailure
	}
}

func sides(h *config.HashCmd) []session.Side {
	var out []session.Side

	if h.Source != "" {
		out = append(out, session.Side{Label: hashengine.LabelSource, Root: h.Source, Manifest: h.SourceManifest})
	}

	if h.Dest != "" {
		out = append(out, session.Side{Label: hashengine.LabelDest, Root: h.Dest, Manifest: h.DestManifest})
	}

	return out
}

func (a *app) compare(c *config.CompareCmd) int {
	comparator := compare.New(compare.Options{
		Source:          c.SourceRoots,
		Dest:            c.DestRoots,
		AllowIncomplete: c.AllowIncomplete,
		Details:         c.Details,
	})

	r, err := comparator.CompareFiles(c.SourceManifest, c.DestManifest)
	if err != nil {
		a.log.Logf("compare failed: %v", err)
		a.errorf("%v", err)

		if errors.Is(err, compare.ErrIncompleteManifest) {
			a.errorf("finish hashing first, or pass --allow-incomplete")
		}

		return exitFailure
	}

	a.log.Logf("compare %s %s: %s (matched %d, missing %d, extra %d, corrupted %d)",
		c.SourceManifest, c.DestManifest, r.Status, r.Matched, r.Missing, r.Extra, r.Corrupted)
	report.Comparison(a.stdout, r, c.Limit)

	if r.Status != compare.StatusVerified {
		return exitFailure
	}

	return exitOK
}

// dupes never fails on duplicates found; they are informational.
func (a *app) dupes(d *config.DupesCmd) int {
	r, err := dupes.FindFile(d.Manifest, dupes.Options{MinSize: int64(d.MinSize)})
	if err != nil {
		a.errorf("%v", err)
		return exitFailure
	}

	report.Duplicates(a.stdout, r, d.Details, d.Limit)

	return exitOK
}

func (a *app) status(s *config.StatusCmd) int {
	inspections := make([]*manifest.Inspection, 0, len(s.Manifests))

	for _, path := range s.Manifests {
		info, err := manifest.Inspect(path)
		if err != nil {
			a.errorf("%v", err)
			return exitFailure
		}

		inspections = append(inspections, info)
	}

	report.Status(a.stdout, inspections)

	return exitOK
}

func (a *app) errorf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.stderr, "Error: "+format+"\n", args...)
}

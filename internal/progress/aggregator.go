// Package progress derives live progress from the durable state logs of
// running pipelines, without touching file contents or pipeline memory.
package progress

import (
	"context"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/joe/migrate-verify/internal/manifest"
)

// Aggregator polls the state log and byte ledger of each tracked manifest.
// It is owned by whoever starts the pipelines; there is no global state.
type Aggregator struct {
	TimeProvider TimeProvider
	Interval     time.Duration
	Window       int

	mu       sync.Mutex
	trackers []*tracker
	started  time.Time
}

type tracker struct {
	label     string
	state     *manifest.Tail
	ledger    *manifest.Tail
	recovered *manifest.Tail

	files int
	bytes int64

	// counted ledger rows are in bytes; ahead are read but not yet settled.
	counted int
	ahead   []int64

	totalFiles int
	totalBytes int64

	primed   bool
	lastPoll time.Time
	samples  []RateSample
}

// NewAggregator returns an aggregator with the default interval and window.
func NewAggregator() *Aggregator {
	return &Aggregator{
		TimeProvider: &RealTimeProvider{},
		Interval:     DefaultInterval,
		Window:       DefaultWindow,
	}
}

// Track adds the manifest at manifestPath under label.
func (a *Aggregator) Track(label, manifestPath string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	files := manifest.FilesFor(manifestPath)
	a.trackers = append(a.trackers, &tracker{
		label:     label,
		state:     manifest.NewTail(files.State),
		ledger:    manifest.NewTail(files.Ledger),
		recovered: manifest.NewTail(files.Recovered),
	})
}

// SetTotals records the enumeration totals for label.
func (a *Aggregator) SetTotals(label string, files int, bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, t := range a.trackers {
		if t.label == label {
			t.totalFiles = files
			t.totalBytes = bytes
		}
	}
}

// Poll reads whatever the logs gained since the last poll and computes a
// snapshot. The first poll of each log only establishes the baseline, so
// work settled by earlier runs does not count as throughput.
func (a *Aggregator) Poll() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.TimeProvider.Now()
	if a.started.IsZero() {
		a.started = now
	}

	snap := Snapshot{At: now, Elapsed: now.Sub(a.started)}

	for _, t := range a.trackers {
		a.advance(t, now)
		snap.Pipelines = append(snap.Pipelines, t.progress())
	}

	snap.Overall = combine(snap.Pipelines)

	return snap
}

// Run polls every Interval and hands each snapshot to publish. It stops when
// done is closed (all pipelines have exited) or ctx ends, and returns the
// final snapshot.
func (a *Aggregator) Run(ctx context.Context, done <-chan struct{}, publish func(Snapshot)) Snapshot {
	if publish == nil {
		publish = func(Snapshot) {}
	}

	ticker := a.TimeProvider.NewTicker(a.Interval)
	defer ticker.Stop()

	publish(a.Poll())

	for {
		select {
		case <-done:
			return a.final(publish)
		case <-ctx.Done():
			return a.final(publish)
		case <-ticker.C():
			publish(a.Poll())
		}
	}
}

func (a *Aggregator) final(publish func(Snapshot)) Snapshot {
	snap := a.Poll()
	snap.Final = true
	publish(snap)

	return snap
}

func (a *Aggregator) advance(t *tracker, now time.Time) {
	prevFiles, prevBytes := t.files, t.bytes

	rows, sizes, credits, restarted := t.read()
	if restarted {
		// A log was rewritten under us; recount everything it now holds.
		t.files, t.bytes, t.counted, t.ahead = 0, 0, 0, nil
	}

	t.files += len(rows)

	for _, line := range sizes {
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			n = 0
		}
		t.ahead = append(t.ahead, n)
	}

	// The ledger row is written before its state row; a size only counts
	// once the state log has caught up with it.
	for len(t.ahead) > 0 && t.counted < t.files {
		t.bytes += t.ahead[0]
		t.ahead = t.ahead[1:]
		t.counted++
	}

	for _, line := range credits {
		if size, _, ok := manifest.ParseRecovered(line); ok {
			t.bytes += size
		}
	}

	if !t.primed || restarted {
		t.primed = true
		t.lastPoll = now
		return
	}

	sample := RateSample{
		Timestamp: now,
		Interval:  now.Sub(t.lastPoll),
		Bytes:     t.bytes - prevBytes,
		Files:     t.files - prevFiles,
	}
	t.lastPoll = now

	if sample.Interval <= 0 {
		return
	}

	window := a.Window
	if window <= 0 {
		window = DefaultWindow
	}

	t.samples = append(t.samples, sample)
	if len(t.samples) > window {
		t.samples = t.samples[len(t.samples)-window:]
	}
}

// read returns what each log gained. If any log restarted, every log is
// re-read from its beginning so the counts can be rebuilt together.
func (t *tracker) read() (rows, sizes, credits []string, restarted bool) {
	tails := []*manifest.Tail{t.state, t.ledger, t.recovered}
	out := make([][]string, len(tails))

	for i, tail := range tails {
		lines, again, err := tail.ReadLines()
		if err != nil {
			lines = nil
		}
		out[i] = lines
		restarted = restarted || again
	}

	if restarted {
		for i, tail := range tails {
			tail.Rewind()
			out[i], _, _ = tail.ReadLines()
		}
	}

	return out[0], out[1], out[2], restarted
}

func (t *tracker) progress() Progress {
	p := Progress{
		Label:      t.label,
		FilesDone:  t.files,
		BytesDone:  t.bytes,
		TotalFiles: t.totalFiles,
		TotalBytes: t.totalBytes,
	}

	for _, s := range t.samples {
		p.BytesPerSecond += s.BytesPerSecond()
		p.FilesPerSecond += s.FilesPerSecond()
	}
	if n := float64(len(t.samples)); n > 0 {
		p.BytesPerSecond /= n
		p.FilesPerSecond /= n
	}

	fill(&p)

	return p
}

// fill derives percentage and ETA from counts, totals and rates.
func fill(p *Progress) {
	switch {
	case p.TotalBytes > 0:
		p.Known = true
		p.Percent = ratio(float64(p.BytesDone), float64(p.TotalBytes))
		if p.BytesPerSecond > 0 {
			p.ETA, p.HasETA = eta(float64(p.TotalBytes-p.BytesDone), p.BytesPerSecond)
		}
	case p.TotalFiles > 0:
		p.Known = true
		p.ByFiles = true
		p.Percent = ratio(float64(p.FilesDone), float64(p.TotalFiles))
		if p.FilesPerSecond > 0 {
			p.ETA, p.HasETA = eta(float64(p.TotalFiles-p.FilesDone), p.FilesPerSecond)
		}
	}
}

func ratio(done, total float64) float64 {
	return math.Min(done/total, 1) * PercentageScale
}

func eta(remaining, rate float64) (time.Duration, bool) {
	if remaining <= 0 {
		return 0, true
	}

	return time.Duration(remaining / rate * float64(time.Second)), true
}

// combine sums the pipelines. They run in parallel, so the overall ETA is
// the slowest one.
func combine(pipelines []Progress) Progress {
	overall := Progress{Label: "overall"}

	known := true
	byFiles := false

	for _, p := range pipelines {
		overall.FilesDone += p.FilesDone
		overall.BytesDone += p.BytesDone
		overall.TotalFiles += p.TotalFiles
		overall.TotalBytes += p.TotalBytes
		overall.BytesPerSecond += p.BytesPerSecond
		overall.FilesPerSecond += p.FilesPerSecond

		known = known && p.Known
		byFiles = byFiles || p.ByFiles

		if p.HasETA && p.ETA > overall.ETA {
			overall.ETA = p.ETA
		}
		overall.HasETA = overall.HasETA || p.HasETA
	}

	if len(pipelines) == 0 || !known {
		overall.ETA, overall.HasETA = 0, false
		return overall
	}

	overall.Known = true
	if byFiles || overall.TotalBytes == 0 {
		overall.ByFiles = true
		overall.Percent = ratio(float64(overall.FilesDone), float64(max(overall.TotalFiles, 1)))
	} else {
		overall.Percent = ratio(float64(overall.BytesDone), float64(overall.TotalBytes))
	}

	return overall
}

//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package progress_test

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/internal/progress"
)

// fakeClock is a TimeProvider whose time only moves when told to.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *progress.MockTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		ticker: &progress.MockTicker{TickChan: make(chan time.Time)},
	}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) NewTicker(time.Duration) progress.Ticker { return c.ticker }

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func appendSettled(t *testing.T, manifestPath string, sizes ...int64) {
	t.Helper()

	files := manifest.FilesFor(manifestPath)
	for _, size := range sizes {
		appendLine(t, files.State, "/p")
		appendLine(t, files.Ledger, strconv.FormatInt(size, 10))
	}
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line + "\n"); err != nil {
		t.Fatal(err)
	}
}

func TestPollUsesBytesWhenTotalKnown(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "src.manifest")

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Track("source", path)
	agg.SetTotals("source", 10, 1000)

	// Work from an earlier run is counted but is not throughput.
	appendSettled(t, path, 100, 100)
	snap := agg.Poll()
	g.Expect(snap.Pipelines[0].FilesDone).To(Equal(2))
	g.Expect(snap.Pipelines[0].BytesDone).To(Equal(int64(200)))
	g.Expect(snap.Pipelines[0].Percent).To(BeNumerically("~", 20.0))
	g.Expect(snap.Pipelines[0].HasETA).To(BeFalse())

	clock.advance(5 * time.Second)
	appendSettled(t, path, 250, 250)
	snap = agg.Poll()

	p := snap.Pipelines[0]
	g.Expect(p.BytesDone).To(Equal(int64(700)))
	g.Expect(p.Percent).To(BeNumerically("~", 70.0))
	g.Expect(p.ByFiles).To(BeFalse())
	g.Expect(p.BytesPerSecond).To(BeNumerically("~", 100.0))
	g.Expect(p.HasETA).To(BeTrue())
	g.Expect(p.ETA).To(Equal(3 * time.Second))
	g.Expect(snap.Elapsed).To(Equal(5 * time.Second))
}

func TestPollRecountsAfterCrashRepair(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "src.manifest")
	files := manifest.FilesFor(path)

	// A crash left a torn state row and a ledger row ahead of the state log.
	g.Expect(os.WriteFile(files.State, []byte("/a\n/b\n/c-torn"), 0o600)).To(Succeed())
	g.Expect(os.WriteFile(files.Ledger, []byte("1\n2\n3\n"), 0o600)).To(Succeed())

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Track("source", path)

	snap := agg.Poll()
	g.Expect(snap.Pipelines[0].FilesDone).To(Equal(2))
	g.Expect(snap.Pipelines[0].BytesDone).To(Equal(int64(3)), "ledger row without a state row")

	store, err := manifest.Open(path, manifest.Header{})
	g.Expect(err).ShouldNot(HaveOccurred())
	defer func() { _ = store.Close() }()

	clock.advance(5 * time.Second)
	snap = agg.Poll()
	g.Expect(snap.Pipelines[0].FilesDone).To(Equal(2))
	g.Expect(snap.Pipelines[0].BytesDone).To(Equal(int64(3)))
	g.Expect(snap.Pipelines[0].BytesPerSecond).To(BeZero(), "a recount is not throughput")

	// The held-back ledger row counts once its state row lands.
	clock.advance(5 * time.Second)
	appendLine(t, files.Ledger, "4")
	snap = agg.Poll()
	g.Expect(snap.Pipelines[0].BytesDone).To(Equal(int64(3)))

	appendLine(t, files.State, "/c")
	snap = agg.Poll()
	g.Expect(snap.Pipelines[0].FilesDone).To(Equal(3))
	g.Expect(snap.Pipelines[0].BytesDone).To(Equal(int64(7)))
}

func TestPollCountsRecoveredBytes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "src.manifest")

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Track("source", path)
	agg.SetTotals("source", 2, 150)

	// One file failed earlier and settled with a zero ledger row.
	appendSettled(t, path, 100, 0)
	snap := agg.Poll()
	g.Expect(snap.Pipelines[0].Percent).To(BeNumerically("~", 66.67, 0.01))

	clock.advance(5 * time.Second)
	appendLine(t, manifest.FilesFor(path).Recovered, "50,/src/locked")
	snap = agg.Poll()
	g.Expect(snap.Pipelines[0].BytesDone).To(Equal(int64(150)))
	g.Expect(snap.Pipelines[0].Percent).To(BeNumerically("~", 100.0))
}

func TestRollingAverageSpansWindow(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "src.manifest")

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Window = 2
	agg.Track("dest", path)
	agg.SetTotals("dest", 100, 100000)

	agg.Poll()

	for _, bytes := range []int64{1000, 2000, 4000} {
		clock.advance(time.Second)
		appendSettled(t, path, bytes)
		agg.Poll()
	}

	snap := agg.Poll() // zero-length interval adds no sample
	g.Expect(snap.Pipelines[0].BytesPerSecond).To(BeNumerically("~", 3000.0))
}

func TestFallsBackToFileCount(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "src.manifest")

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Track("source", path)

	snap := agg.Poll()
	g.Expect(snap.Pipelines[0].Known).To(BeFalse())
	g.Expect(snap.Overall.Known).To(BeFalse())

	agg.SetTotals("source", 4, 0)
	clock.advance(2 * time.Second)
	appendSettled(t, path, 0, 0)

	snap = agg.Poll()
	p := snap.Pipelines[0]
	g.Expect(p.Known).To(BeTrue())
	g.Expect(p.ByFiles).To(BeTrue())
	g.Expect(p.Percent).To(BeNumerically("~", 50.0))
	g.Expect(p.FilesPerSecond).To(BeNumerically("~", 1.0))
	g.Expect(p.ETA).To(Equal(2 * time.Second))
}

func TestOverallCombinesPipelines(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.manifest")
	dst := filepath.Join(dir, "dst.manifest")

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Track("source", src)
	agg.Track("dest", dst)
	agg.SetTotals("source", 2, 400)
	agg.SetTotals("dest", 2, 600)

	agg.Poll()
	clock.advance(time.Second)
	appendSettled(t, src, 200)
	appendSettled(t, dst, 100)

	snap := agg.Poll()
	g.Expect(snap.Overall.BytesDone).To(Equal(int64(300)))
	g.Expect(snap.Overall.TotalBytes).To(Equal(int64(1000)))
	g.Expect(snap.Overall.Percent).To(BeNumerically("~", 30.0))
	g.Expect(snap.Overall.BytesPerSecond).To(BeNumerically("~", 300.0))
	// dest needs 5s at 100 B/s; source needs 1s.
	g.Expect(snap.Overall.ETA).To(Equal(5 * time.Second))
}

func TestRunStopsWhenPipelinesFinish(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	clock := newFakeClock()
	path := filepath.Join(t.TempDir(), "src.manifest")

	agg := progress.NewAggregator()
	agg.TimeProvider = clock
	agg.Track("source", path)
	agg.SetTotals("source", 1, 10)

	done := make(chan struct{})
	result := make(chan progress.Snapshot, 1)

	var mu sync.Mutex
	published := 0

	go func() {
		result <- agg.Run(context.Background(), done, func(progress.Snapshot) {
			mu.Lock()
			published++
			mu.Unlock()
		})
	}()

	clock.advance(time.Second)
	clock.ticker.TickChan <- clock.Now()

	appendSettled(t, path, 10)
	close(done)

	final := <-result
	g.Expect(final.Final).To(BeTrue())
	g.Expect(final.Overall.FilesDone).To(Equal(1))
	g.Expect(final.Overall.Percent).To(BeNumerically("~", 100.0))

	mu.Lock()
	defer mu.Unlock()
	g.Expect(published).To(Equal(3))
}

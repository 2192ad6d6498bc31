package stopfile_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/internal/stopfile"
)

func newWatcher(t *testing.T) *stopfile.Watcher {
	t.Helper()

	return &stopfile.Watcher{
		Path:     filepath.Join(t.TempDir(), stopfile.DefaultName),
		Interval: 10 * time.Millisecond,
	}
}

func TestWatchCancelsWhenStopFileAppears(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	w := newWatcher(t)
	ctx, stop := w.Watch(context.Background())
	defer stop()

	g.Consistently(ctx.Done(), 50*time.Millisecond).ShouldNot(BeClosed())

	// Content is irrelevant; an empty file is a stop request.
	g.Expect(os.WriteFile(w.Path, nil, 0o600)).To(Succeed())

	g.Eventually(ctx.Done(), time.Second).Should(BeClosed())
	g.Expect(errors.Is(context.Cause(ctx), stopfile.ErrStopFile)).To(BeTrue())
	g.Expect(w.Present()).To(BeTrue())
}

func TestWatchStopsImmediatelyWhenFileAlreadyExists(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	w := newWatcher(t)
	g.Expect(os.WriteFile(w.Path, []byte("please stop"), 0o600)).To(Succeed())

	ctx, stop := w.Watch(context.Background())
	defer stop()

	g.Eventually(ctx.Done(), time.Second).Should(BeClosed())
}

func TestWatchFollowsParent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := newWatcher(t).Watch(parent)
	defer stop()

	cancel()

	g.Eventually(ctx.Done(), time.Second).Should(BeClosed())
	g.Expect(errors.Is(context.Cause(ctx), stopfile.ErrStopFile)).To(BeFalse())
}

func TestStopReleasesWatcher(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx, stop := newWatcher(t).Watch(context.Background())
	stop()

	g.Expect(ctx.Err()).To(MatchError(context.Canceled))
}

func TestEmptyPathIsNeverPresent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect((&stopfile.Watcher{}).Present()).To(BeFalse())
}

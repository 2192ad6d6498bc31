//go:build unix

package stopfile_test

import (
	"context"
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/internal/stopfile"
)

//nolint:paralleltest // delivers a real signal to the test process
func TestWatchCancelsOnSignal(t *testing.T) {
	g := NewWithT(t)

	w := newWatcher(t)
	w.Signals = []os.Signal{syscall.SIGUSR1}

	ctx, stop := w.Watch(context.Background())
	defer stop()

	g.Expect(syscall.Kill(os.Getpid(), syscall.SIGUSR1)).To(Succeed())

	g.Eventually(ctx.Done(), time.Second).Should(BeClosed())
	g.Expect(errors.Is(context.Cause(ctx), stopfile.ErrInterrupt)).To(BeTrue())
}

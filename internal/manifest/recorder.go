package manifest

import (
	"sync/atomic"
)

// RetryIndex marks a Result for a path re-dispatched from the retry log.
// Such a result adds a manifest entry and a recovered row; its enumeration
// position was settled by an earlier run with a zero ledger row.
const RetryIndex = -1

const syncEveryRows = 64

// Result is the outcome of hashing one file.
type Result struct {
	Index  int
	Path   string
	Size   int64
	Digest string
	Err    error
}

// RecorderStats is a snapshot of what a Recorder has written.
type RecorderStats struct {
	Hashed  int64
	Failed  int64
	Retried int64
	Settled int
	Bytes   int64
}

// Recorder is the single writer of a Store. Workers hand results to Record
// in any order; the recorder appends manifest entries as they arrive and
// settles state rows strictly in enumeration order, so the state row count
// is always a safe resume offset.
type Recorder struct {
	store   *Store
	results chan Result
	failed  chan struct{}
	done    chan struct{}
	err     error

	next    int
	pending map[int]Result
	unsync  int

	hashed  atomic.Int64
	failCnt atomic.Int64
	retried atomic.Int64
	settled atomic.Int64
	bytes   atomic.Int64
}

// NewRecorder starts the writer. next is the first enumeration position this
// run will settle (the resume offset).
func (s *Store) NewRecorder(next int, buffer int) *Recorder {
	r := &Recorder{
		store:   s,
		results: make(chan Result, buffer),
		failed:  make(chan struct{}),
		done:    make(chan struct{}),
		next:    next,
		pending: make(map[int]Result),
	}
	r.settled.Store(int64(next))

	go r.run()

	return r
}

// Record queues a result. It must not be called after Close.
func (r *Recorder) Record(res Result) {
	r.results <- res
}

// Failed is closed when a write fails. Later results are discarded.
func (r *Recorder) Failed() <-chan struct{} {
	return r.failed
}

// Close drains queued results, syncs the logs and returns the first write
// error.
func (r *Recorder) Close() error {
	close(r.results)
	<-r.done

	if r.err != nil {
		return r.err
	}

	return r.store.syncSettled()
}

// Stats returns counters safe to read while the recorder runs.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Hashed:  r.hashed.Load(),
		Failed:  r.failCnt.Load(),
		Retried: r.retried.Load(),
		Settled: int(r.settled.Load()),
		Bytes:   r.bytes.Load(),
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	for res := range r.results {
		if r.err != nil {
			continue
		}

		r.err = r.apply(res)
		if r.err != nil {
			close(r.failed)
		}
	}
}

func (r *Recorder) apply(res Result) error {
	if res.Index == RetryIndex {
		if res.Err != nil {
			r.failCnt.Add(1)
			return nil
		}
		err := r.store.appendEntry(Entry{Size: res.Size, Digest: res.Digest, Path: res.Path})
		if err != nil {
			return err
		}
		r.retried.Add(1)
		r.bytes.Add(res.Size)
		return r.store.appendRecovered(res.Size, res.Path)
	}

	if res.Index < r.next {
		return nil
	}

	if res.Err == nil {
		err := r.store.appendEntry(Entry{Size: res.Size, Digest: res.Digest, Path: res.Path})
		if err != nil {
			return err
		}
		r.hashed.Add(1)
		r.bytes.Add(res.Size)
	} else {
		err := r.store.appendRetry(res.Path)
		if err != nil {
			return err
		}
		r.failCnt.Add(1)
	}

	r.pending[res.Index] = res

	return r.settle()
}

// settle appends state and ledger rows for the contiguous finished prefix.
func (r *Recorder) settle() error {
	for {
		res, ok := r.pending[r.next]
		if !ok {
			return nil
		}

		size := res.Size
		if res.Err != nil {
			size = 0
		}

		err := r.store.appendSettled(res.Path, size)
		if err != nil {
			return err
		}

		delete(r.pending, r.next)
		r.next++
		r.settled.Store(int64(r.next))

		r.unsync++
		if r.unsync >= syncEveryRows {
			r.unsync = 0
			err = r.store.syncSettled()
			if err != nil {
				return err
			}
		}
	}
}

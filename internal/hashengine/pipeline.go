// Package hashengine runs the hashing pipeline for one tree: enumerate,
// resume from the durable state log, and hash the remaining files with a
// worker pool sized for the medium underneath.
package hashengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/joe/migrate-verify/internal/logging"
	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/internal/media"
	"github.com/joe/migrate-verify/pkg/digest"
	fileerrors "github.com/joe/migrate-verify/pkg/errors"
	"github.com/joe/migrate-verify/pkg/filesystem"
)

// Exported constants.
const (
	// LabelSource and LabelDest name the two sides of a migration.
	LabelSource = "source"
	LabelDest   = "dest"
	// MaxRecordedFailures caps per-file failures kept for the summary.
	MaxRecordedFailures = 200
)

// Exported variables.
var (
	ErrCancelled    = errors.New("pipeline cancelled")
	ErrFilesSkipped = errors.New("file(s) could not be hashed")
)

// Pipeline hashes one tree into one manifest.
type Pipeline struct {
	Label        string
	Root         string
	ManifestPath string
	Algorithm    digest.Algorithm // zero adopts the manifest's, or SHA256 for a new one
	Media        media.Kind       // Auto detects
	Workers      int              // zero sizes by medium
	Excludes     []string
	Tool         string

	FileSystem filesystem.FileSystem
	Classifier *media.Classifier
	NewDigest  func(digest.Algorithm) (digest.Provider, error)

	emitter EventEmitter
	log     *logging.Logger
	status  *Status
}

// NewPipeline creates a pipeline with the real filesystem and classifier.
func NewPipeline(label, root, manifestPath string) *Pipeline {
	return &Pipeline{
		Label:        label,
		Root:         root,
		ManifestPath: manifestPath,
		FileSystem:   filesystem.NewRealFileSystem(),
		Classifier:   media.NewClassifier(),
		NewDigest: func(algo digest.Algorithm) (digest.Provider, error) {
			return digest.NewProvider(algo)
		},
		status: newStatus(),
	}
}

// SetEventEmitter sets the event emitter. The emitter is optional.
func (p *Pipeline) SetEventEmitter(emitter EventEmitter) {
	p.emitter = emitter
}

// SetLogger sets the session log; lines are tagged with the pipeline label.
func (p *Pipeline) SetLogger(l *logging.Logger) {
	p.log = l.With(p.Label)
}

// Status returns the live, advisory view of the pipeline.
func (p *Pipeline) Status() *Status {
	return p.status
}

// emit sends an event if an emitter is configured.
func (p *Pipeline) emit(event Event) {
	if p.emitter != nil {
		p.emitter.Emit(event)
	}
}

// Run executes the pipeline until every file is settled, ctx is cancelled,
// or a pipeline-level error occurs. The returned Result is non-nil whenever
// the manifest was opened, including on cancellation.
//
// Errors: filesystem.ErrEnumeration, manifest.ErrLockUnavailable,
// manifest.ErrResumeMismatch, manifest.ErrAlgorithmChanged and write
// failures are fatal. ErrCancelled means durable state is intact and a later
// run resumes. ErrFilesSkipped means everything else finished but some files
// wait in the retry log.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result, err := p.run(ctx)
	if err != nil && !errors.Is(err, ErrCancelled) && !errors.Is(err, ErrFilesSkipped) {
		p.emit(ErrorOccurred{Label: p.Label, Phase: p.status.Phase(), Err: err})
	}

	p.status.setPhase(PhaseDone)
	p.emit(PipelineComplete{Label: p.Label, Result: result, Err: err})

	return result, err
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	started := time.Now()

	store, err := manifest.Open(p.ManifestPath, manifest.Header{
		Algorithm: p.Algorithm,
		Root:      p.Root,
		Tool:      p.Tool,
	})
	if err != nil {
		p.log.Logf("cannot open manifest %s: %v", p.ManifestPath, err)
		return nil, err
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			p.log.Logf("closing manifest: %v", closeErr)
		}
	}()

	algo := store.Header().Algorithm
	provider, err := p.NewDigest(algo)
	if err != nil {
		return nil, err
	}

	result := &Result{Label: p.Label, Root: p.Root, Manifest: p.ManifestPath, Algorithm: algo}

	enum, err := p.enumerate()
	if err != nil {
		return result, err
	}

	result.Total = enum.Len()
	result.TotalBytes = enum.TotalBytes()
	result.Problems = enum.Problems

	err = p.resume(store, enum, result)
	if err != nil {
		return result, err
	}

	retries, err := store.PendingRetries()
	if err != nil {
		return result, err
	}
	result.RetriesQueued = len(retries)

	result.Media = p.Classifier.Resolve(p.Media, p.Root)
	result.Workers = p.Workers
	if result.Workers <= 0 {
		result.Workers = media.Workers(result.Media)
	}

	p.log.Logf("hashing %d of %d files with %d workers (%s, media %s), %d retries queued",
		result.Total-result.Offset, result.Total, result.Workers, algo, result.Media, len(retries))
	p.emit(HashStarted{
		Label: p.Label, Offset: result.Offset, Retries: len(retries),
		Workers: result.Workers, Media: result.Media,
	})

	if result.Offset < result.Total || len(retries) > 0 {
		err = store.ClearComplete()
		if err != nil {
			return result, err
		}
	}

	p.status.begin(result.Workers, result.Total, result.TotalBytes)
	p.status.setPhase(PhaseHashing)

	err = p.hash(ctx, store, provider, enum, retries, result)
	result.Duration = time.Since(started)

	if err != nil {
		return result, err
	}

	return result, p.finish(store, result, ctx.Err() != nil)
}

func (p *Pipeline) enumerate() (*filesystem.Enumeration, error) {
	p.status.setPhase(PhaseEnumerating)
	p.emit(EnumerationStarted{Label: p.Label, Root: p.Root})

	filter, err := filesystem.NewDenyFilter(p.Excludes...)
	if err != nil {
		p.log.Logf("rejecting exclude list: %v", err)
		return nil, err
	}

	enum, err := filesystem.NewEnumerator(p.FileSystem, filter).Enumerate(p.Root)
	if err != nil {
		p.log.Logf("enumeration failed: %v", err)
		return nil, err
	}

	for _, problem := range enum.Problems {
		p.log.Logf("enumeration problem: %v", problem)
	}

	p.log.Logf("enumerated %d files (%d bytes) under %s", enum.Len(), enum.TotalBytes(), p.Root)
	p.emit(EnumerationComplete{
		Label: p.Label, Files: enum.Len(), Bytes: enum.TotalBytes(), Problems: len(enum.Problems),
	})

	return enum, nil
}

func (p *Pipeline) resume(store *manifest.Store, enum *filesystem.Enumeration, result *Result) error {
	offset, err := store.ResumeOffset()
	if err != nil {
		return err
	}

	last, err := store.LastSettled()
	if err != nil {
		return err
	}

	err = manifest.CheckResume(offset, last, enum.Len(), func(i int) string { return enum.At(i).Path })
	if err != nil {
		p.log.Logf("resume check failed: %v", err)
		return err
	}

	if offset > 0 {
		p.log.Logf("resuming after %d settled files (last: %s)", offset, last)
	}

	result.Offset = offset

	return nil
}

// job is one file handed to a worker.
type job struct {
	index int
	path  string
	size  int64
}

func (p *Pipeline) hash(
	ctx context.Context,
	store *manifest.Store,
	provider digest.Provider,
	enum *filesystem.Enumeration,
	retries []string,
	result *Result,
) error {
	rec := store.NewRecorder(result.Offset, result.Workers*2) //nolint:mnd // two results in flight per worker
	jobs := make(chan job, result.Workers)

	go p.dispatch(ctx, rec, enum, retries, result.Offset, jobs)

	var (
		wg       sync.WaitGroup //nolint:varnamelen // wg is idiomatic for WaitGroup
		failMu   sync.Mutex
		failures []error
	)

	enricher := fileerrors.NewEnricher()

	for worker := range result.Workers {
		wg.Go(func() {
			for j := range jobs {
				res, aborted := p.hashOne(ctx, provider, worker, j)
				if aborted {
					continue
				}

				if res.Err != nil {
					p.log.Logf("digest failed for %s: %v", j.path, res.Err)
					p.emit(FileFailed{Label: p.Label, Path: j.path, Err: res.Err})

					failMu.Lock()
					if len(failures) < MaxRecordedFailures {
						failures = append(failures, enricher.Enrich(res.Err, j.path))
					}
					failMu.Unlock()
				} else {
					p.emit(FileHashed{Label: p.Label, Worker: worker, Path: j.path, Size: res.Size})
				}

				rec.Record(res)
			}
		})
	}

	wg.Wait()

	recErr := rec.Close()
	stats := rec.Stats()

	result.Hashed = int(stats.Hashed)
	result.Retried = int(stats.Retried)
	result.Failed = int(stats.Failed)
	result.Settled = stats.Settled
	result.BytesHashed = stats.Bytes
	result.Failures = failures

	if recErr != nil {
		p.log.Logf("manifest write failed: %v", recErr)
		return fmt.Errorf("failed to record results: %w", recErr)
	}

	// A stop that lands after the last file settled still finishes the run.
	if ctx.Err() != nil && result.Settled < result.Total {
		p.log.Logf("cancelled after settling %d of %d files", result.Settled, result.Total)
		return fmt.Errorf("%w: %d of %d files settled", ErrCancelled, result.Settled, result.Total)
	}

	return nil
}

// dispatch feeds retries first, then the unsettled suffix. It stops on
// cancellation or when the recorder can no longer write.
func (p *Pipeline) dispatch(
	ctx context.Context,
	rec *manifest.Recorder,
	enum *filesystem.Enumeration,
	retries []string,
	offset int,
	jobs chan<- job,
) {
	defer close(jobs)

	send := func(j job) bool {
		select {
		case <-ctx.Done():
			return false
		case <-rec.Failed():
			return false
		case jobs <- j:
			return true
		}
	}

	for _, path := range retries {
		var size int64
		if info, err := p.FileSystem.Lstat(path); err == nil {
			size = info.Size()
		}

		if !send(job{index: manifest.RetryIndex, path: path, size: size}) {
			return
		}
	}

	scanner := enum.Scan(offset)
	for {
		info, ok := scanner.Next()
		if !ok {
			return
		}

		if !send(job{index: scanner.Index(), path: info.Path, size: info.Size}) {
			return
		}
	}
}

// hashOne digests one file. aborted reports that cancellation interrupted
// the work, in which case nothing may be recorded for it.
func (p *Pipeline) hashOne(ctx context.Context, provider digest.Provider, worker int, j job) (manifest.Result, bool) {
	hashCtx := ctx

	if j.size > 0 {
		if ctx.Err() != nil {
			return manifest.Result{}, true
		}
	} else {
		// Empty files finish instantly and are hashed even after a stop.
		hashCtx = context.WithoutCancel(ctx)
	}

	p.status.markStarted(worker, j.path, j.size)
	p.emit(FileStarted{Label: p.Label, Worker: worker, Path: j.path, Size: j.size})

	sum, n, err := provider.Digest(hashCtx, j.path)

	if err != nil && hashCtx.Err() != nil {
		p.status.markIdle(worker)
		return manifest.Result{}, true
	}

	p.status.markDone(worker, n, err == nil)

	return manifest.Result{Index: j.index, Path: j.path, Size: n, Digest: sum, Err: err}, false
}

// finish decides between complete and skipped, and writes the completion
// marker when nothing is outstanding. stopped means a retry may have been
// abandoned rather than failed.
func (p *Pipeline) finish(store *manifest.Store, result *Result, stopped bool) error {
	outstanding, err := store.PendingRetries()
	if err != nil {
		return err
	}
	result.RetriesPending = len(outstanding)

	if result.Settled < result.Total {
		return fmt.Errorf("%w: only %d of %d files settled", ErrCancelled, result.Settled, result.Total)
	}

	if len(outstanding) > 0 && stopped {
		return fmt.Errorf("%w: %d retries left", ErrCancelled, len(outstanding))
	}

	if len(outstanding) > 0 {
		p.log.Logf("%d file(s) remain in the retry log", len(outstanding))
		return fmt.Errorf("%w: %d waiting for retry", ErrFilesSkipped, len(outstanding))
	}

	err = store.MarkComplete(manifest.Completion{
		Files:       result.Total,
		Bytes:       result.TotalBytes,
		Algorithm:   result.Algorithm.String(),
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	result.Complete = true
	p.log.Logf("manifest complete: %d files, %d bytes in %s", result.Total, result.TotalBytes, result.Duration)

	return nil
}

package hashengine

import (
	"sync"
	"time"

	"github.com/joe/migrate-verify/internal/media"
	"github.com/joe/migrate-verify/pkg/digest"
)

// Pipeline phases.
const (
	PhaseStarting    = "starting"
	PhaseEnumerating = "enumerating"
	PhaseHashing     = "hashing"
	PhaseDone        = "done"
)

// Marker is what one worker is hashing right now. Advisory only.
type Marker struct {
	Worker int
	Path   string
	Size   int64
	Since  time.Time
}

// Status is the in-memory view of a running pipeline for display. Durable
// progress lives in the state log; nothing here affects correctness.
type Status struct {
	mu sync.RWMutex

	phase      string
	markers    []Marker
	totalFiles int
	totalBytes int64
	doneFiles  int
	doneBytes  int64
	failed     int
}

// StatusSnapshot is a copy of Status safe to hold.
type StatusSnapshot struct {
	Phase      string
	Current    []Marker
	TotalFiles int
	TotalBytes int64
	DoneFiles  int // this run only
	DoneBytes  int64
	Failed     int
}

func newStatus() *Status {
	return &Status{phase: PhaseStarting}
}

// Phase returns the current phase.
func (s *Status) Phase() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.phase
}

// Snapshot copies the status. Idle workers are omitted from Current.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current := make([]Marker, 0, len(s.markers))
	for _, m := range s.markers {
		if m.Path != "" {
			current = append(current, m)
		}
	}

	return StatusSnapshot{
		Phase:      s.phase,
		Current:    current,
		TotalFiles: s.totalFiles,
		TotalBytes: s.totalBytes,
		DoneFiles:  s.doneFiles,
		DoneBytes:  s.doneBytes,
		Failed:     s.failed,
	}
}

func (s *Status) setPhase(phase string) {
	s.mu.Lock()
	s.phase = phase
	s.mu.Unlock()
}

func (s *Status) begin(workers, files int, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.markers = make([]Marker, workers)
	for i := range s.markers {
		s.markers[i].Worker = i
	}
	s.totalFiles = files
	s.totalBytes = bytes
}

func (s *Status) markStarted(worker int, path string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if worker < len(s.markers) {
		s.markers[worker] = Marker{Worker: worker, Path: path, Size: size, Since: time.Now()}
	}
}

func (s *Status) markIdle(worker int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if worker < len(s.markers) {
		s.markers[worker] = Marker{Worker: worker}
	}
}

func (s *Status) markDone(worker int, bytes int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if worker < len(s.markers) {
		s.markers[worker] = Marker{Worker: worker}
	}

	if ok {
		s.doneFiles++
		s.doneBytes += bytes
	} else {
		s.failed++
	}
}

// Result summarizes one Run.
type Result struct {
	Label     string
	Root      string
	Manifest  string
	Algorithm digest.Algorithm
	Media     media.Kind
	Workers   int

	Total      int   // files enumerated
	TotalBytes int64 // bytes enumerated
	Offset     int   // settled before this run

	Hashed         int // new manifest entries for enumeration positions
	Retried        int // retry-log paths hashed successfully
	Failed         int
	Settled        int // state rows after this run
	BytesHashed    int64
	RetriesQueued  int
	RetriesPending int

	Complete bool
	Duration time.Duration

	// Failures are enriched per-file errors (capped at MaxRecordedFailures).
	Failures []error
	// Problems are subtrees the enumerator could not read.
	Problems []error
}

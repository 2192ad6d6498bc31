package progress

import "time"

// Exported constants.
const (
	// DefaultInterval is how often the durable logs are polled.
	DefaultInterval = 5 * time.Second
	// DefaultWindow is how many samples the throughput average spans.
	DefaultWindow = 6
	// PercentageScale converts 0-1 range to 0-100 range.
	PercentageScale = 100.0
)

// RateSample is the work settled between two polls.
type RateSample struct {
	// Timestamp is when the poll ran.
	Timestamp time.Time

	// Interval is the wall time since the previous poll.
	Interval time.Duration

	// Bytes is the growth of the byte ledger over Interval.
	Bytes int64

	// Files is the growth of the state log over Interval.
	Files int
}

// BytesPerSecond is the instantaneous throughput of the sample.
func (s RateSample) BytesPerSecond() float64 {
	if s.Interval <= 0 {
		return 0
	}

	return float64(s.Bytes) / s.Interval.Seconds()
}

// FilesPerSecond is the instantaneous file rate of the sample.
func (s RateSample) FilesPerSecond() float64 {
	if s.Interval <= 0 {
		return 0
	}

	return float64(s.Files) / s.Interval.Seconds()
}

// Progress is one pipeline's (or the overall) position.
type Progress struct {
	Label string

	FilesDone  int
	BytesDone  int64
	TotalFiles int   // 0 until enumeration has finished
	TotalBytes int64 // 0 until enumeration has finished, or for an empty tree

	// Percent is 0-100, by bytes when the total is known, else by files.
	Percent float64
	// ByFiles reports that Percent and ETA fell back to file counts.
	ByFiles bool
	// Known is false while no total is available at all.
	Known bool

	// BytesPerSecond and FilesPerSecond are rolling averages over the window.
	BytesPerSecond float64
	FilesPerSecond float64

	// ETA is valid when HasETA.
	ETA    time.Duration
	HasETA bool
}

// Snapshot is the result of one poll.
type Snapshot struct {
	At        time.Time
	Elapsed   time.Duration
	Pipelines []Progress
	Overall   Progress
	Final     bool
}

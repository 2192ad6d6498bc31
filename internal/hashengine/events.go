package hashengine

import "github.com/joe/migrate-verify/internal/media"

// Event is the interface implemented by all pipeline events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// Enumeration phase events

// EnumerationStarted is emitted when the tree walk begins.
type EnumerationStarted struct {
	Label string
	Root  string
}

func (EnumerationStarted) isEvent() {}

// EnumerationComplete is emitted with the totals used for progress.
type EnumerationComplete struct {
	Label    string
	Files    int
	Bytes    int64
	Problems int
}

func (EnumerationComplete) isEvent() {}

// Hash phase events

// HashStarted is emitted once the resume point and pool size are known.
type HashStarted struct {
	Label   string
	Offset  int
	Retries int
	Workers int
	Media   media.Kind
}

func (HashStarted) isEvent() {}

// FileStarted is emitted when a worker picks up a file.
type FileStarted struct {
	Label  string
	Worker int
	Path   string
	Size   int64
}

func (FileStarted) isEvent() {}

// FileHashed is emitted when a digest has been handed to the recorder.
type FileHashed struct {
	Label  string
	Worker int
	Path   string
	Size   int64
}

func (FileHashed) isEvent() {}

// FileFailed is emitted when a file could not be hashed. It will be retried
// on the next run.
type FileFailed struct {
	Label string
	Path  string
	Err   error
}

func (FileFailed) isEvent() {}

// PipelineComplete is emitted when Run returns, whatever the outcome.
type PipelineComplete struct {
	Label  string
	Result *Result
	Err    error
}

func (PipelineComplete) isEvent() {}

// Error events

// ErrorOccurred is emitted for pipeline-level errors.
type ErrorOccurred struct {
	Label string
	Phase string
	Err   error
}

func (ErrorOccurred) isEvent() {}

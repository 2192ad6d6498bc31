package manifest

import (
	"errors"
	"os"
)

// Inspection is a read-only view of a manifest and its logs, for status
// reporting while or after a pipeline runs.
type Inspection struct {
	Files   Files
	Exists  bool
	Header  Header
	Entries int

	// Settled comes from the state log. SettledBytes is the byte ledger,
	// capped at the state row count, plus RecoveredBytes.
	Settled        int
	SettledBytes   int64
	RecoveredBytes int64

	PendingRetries int
	Complete       *Completion

	// Running reports that another process holds the manifest lock.
	Running bool
}

// Inspect reads what the durable logs say about the manifest at path. It
// never repairs or writes anything; a torn final line is simply not counted.
func Inspect(path string) (*Inspection, error) {
	files := FilesFor(path)
	info := &Inspection{Files: files}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return info, nil
	}

	current, err := Read(path)
	if err != nil {
		return nil, err
	}

	info.Exists = true
	info.Header = current.Header
	info.Entries = len(current.Entries)
	info.Complete = current.Complete

	state, err := readLines(files.State)
	if err != nil {
		return nil, err
	}
	info.Settled = len(state)

	// Ledger rows past the state count are not settled yet.
	rows, err := readLines(files.Ledger)
	if err != nil {
		return nil, err
	}
	_, info.SettledBytes = sumRows(rows[:min(len(rows), len(state))])

	hashed := make(map[string]struct{}, len(current.Entries))
	for _, entry := range current.Entries {
		hashed[entry.Path] = struct{}{}
	}

	credit, err := recoveredBytes(files.Recovered, hashed)
	if err != nil {
		return nil, err
	}
	info.RecoveredBytes = credit.bytes
	info.SettledBytes += credit.bytes

	pending, err := pendingRetries(files)
	if err != nil {
		return nil, err
	}
	info.PendingRetries = len(pending)

	lock, err := acquireLock(files.Lock)
	if errors.Is(err, ErrLockUnavailable) {
		info.Running = true
	} else if err == nil {
		_ = lock.release()
	}

	return info, nil
}

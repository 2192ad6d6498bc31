//go:build !unix

package manifest

import (
	"errors"
	"fmt"
	"os"
)

// fileLock falls back to an exclusively created lock file. A crashed run
// leaves it behind and the operator must remove it.
type fileLock struct {
	path string
}

func acquireLock(path string) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) // #nosec G304 G302 - lock beside manifest
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s exists", ErrLockUnavailable, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLockUnavailable, path, err)
	}

	_, _ = fmt.Fprintf(file, "%d\n", os.Getpid())
	_ = file.Close()

	return &fileLock{path: path}, nil
}

func (l *fileLock) release() error {
	if l == nil || l.path == "" {
		return nil
	}

	err := os.Remove(l.path)
	l.path = ""

	return err
}

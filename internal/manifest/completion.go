package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Completion is the marker written once every enumerated file is settled
// and no retries remain.
type Completion struct {
	Files       int       `json:"files"`
	Bytes       int64     `json:"bytes"`
	Algorithm   string    `json:"algorithm"`
	CompletedAt time.Time `json:"completed_at"`
}

// WriteCompletion atomically replaces the marker at path.
func WriteCompletion(path string, c Completion) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode completion marker: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create completion marker: %w", err)
	}

	_, err = tmp.Write(append(data, '\n'))
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write completion marker: %w", err)
	}

	return nil
}

// ReadCompletion reads the marker at path. A missing marker is (nil, nil).
func ReadCompletion(path string) (*Completion, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read completion marker: %w", err)
	}

	var c Completion

	err = json.Unmarshal(data, &c)
	if err != nil {
		return nil, fmt.Errorf("invalid completion marker %s: %w", path, err)
	}

	return &c, nil
}

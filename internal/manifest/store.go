package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joe/migrate-verify/pkg/digest"
)

// Exported variables.
var (
	ErrAlgorithmChanged = errors.New("manifest algorithm differs from requested algorithm")
	ErrLockUnavailable  = errors.New("manifest is locked by another run")
	ErrResumeMismatch   = errors.New("state log does not match the current tree")
)

const (
	fileMode       = 0o644
	tailChunkBytes = 4096
)

// Store owns the manifest and its companion logs for the lifetime of one
// pipeline. Only one Store may be open per manifest at a time.
type Store struct {
	files  Files
	header Header
	lock   *fileLock

	manifest  *os.File
	state     *os.File
	ledger    *os.File
	retry     *os.File
	recovered *os.File
}

// Open locks the manifest at path and prepares its logs for appending.
//
// A new manifest gets want as its header (SHA256 when want.Algorithm is
// unset). An existing manifest keeps its header; if want names a different
// algorithm Open fails with ErrAlgorithmChanged. Torn final lines left by a
// crash are cut off, the byte ledger is realigned with the state log, and a
// retried file whose recovered row was lost to a crash gets it back.
func Open(path string, want Header) (*Store, error) {
	files := FilesFor(path)

	lock, err := acquireLock(files.Lock)
	if err != nil {
		return nil, err
	}

	store := &Store{files: files, lock: lock}

	err = store.prepare(want)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) prepare(want Header) error {
	for _, path := range []string{s.files.Manifest, s.files.State, s.files.Ledger, s.files.Retry, s.files.Recovered} {
		err := repairTail(path)
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(s.files.Manifest)

	switch {
	case err == nil && info.Size() > 0:
		s.header, err = ReadHeader(s.files.Manifest)
		if err != nil {
			return err
		}
		if want.Algorithm.Valid() && want.Algorithm != s.header.Algorithm {
			return fmt.Errorf("%w: manifest uses %s, requested %s",
				ErrAlgorithmChanged, s.header.Algorithm, want.Algorithm)
		}
	case err == nil || errors.Is(err, os.ErrNotExist):
		s.header = want
		s.header.Version = FormatVersion
		if !s.header.Algorithm.Valid() {
			s.header.Algorithm = digest.SHA256
		}
		if s.header.Created.IsZero() {
			s.header.Created = time.Now()
		}
		err = writeSynced(s.files.Manifest, FormatHeader(s.header))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("failed to stat manifest %s: %w", s.files.Manifest, err)
	}

	err = alignLedger(s.files.State, s.files.Ledger)
	if err != nil {
		return err
	}

	err = reconcileRecovered(s.files)
	if err != nil {
		return err
	}

	s.manifest, err = openAppend(s.files.Manifest)
	if err != nil {
		return err
	}
	s.state, err = openAppend(s.files.State)
	if err != nil {
		return err
	}
	s.ledger, err = openAppend(s.files.Ledger)
	if err != nil {
		return err
	}
	s.retry, err = openAppend(s.files.Retry)
	if err != nil {
		return err
	}
	s.recovered, err = openAppend(s.files.Recovered)

	return err
}

// Header returns the manifest's header.
func (s *Store) Header() Header { return s.header }

// Files returns the paths of the manifest and its logs.
func (s *Store) Files() Files { return s.files }

// ResumeOffset is the number of settled enumeration positions.
func (s *Store) ResumeOffset() (int, error) {
	return CountLines(s.files.State)
}

// LastSettled returns the path of the final state row, or "" when none.
func (s *Store) LastSettled() (string, error) {
	return lastLine(s.files.State)
}

// CheckResume verifies that the settled prefix still lines up with a fresh
// enumeration of total paths, where pathAt(i) is the i-th path. The last state
// row must name the path at offset-1; anything else means the tree changed
// and skipping offset entries could skip unhashed files.
func CheckResume(offset int, lastSettled string, total int, pathAt func(int) string) error {
	if offset == 0 {
		return nil
	}

	if offset > total {
		return fmt.Errorf("%w: %d settled but only %d files enumerated", ErrResumeMismatch, offset, total)
	}

	if got := pathAt(offset - 1); got != lastSettled {
		return fmt.Errorf("%w: position %d is %q, state log has %q", ErrResumeMismatch, offset, got, lastSettled)
	}

	return nil
}

// PendingRetries lists paths in the retry log that still have no manifest
// entry, in first-failure order without duplicates.
func (s *Store) PendingRetries() ([]string, error) {
	return pendingRetries(s.files)
}

func pendingRetries(files Files) ([]string, error) {
	retried, err := readLines(files.Retry)
	if err != nil || len(retried) == 0 {
		return nil, err
	}

	current, err := Read(files.Manifest)
	if err != nil {
		return nil, err
	}

	hashed := make(map[string]struct{}, len(current.Entries))
	for _, entry := range current.Entries {
		hashed[entry.Path] = struct{}{}
	}

	pending := make([]string, 0, len(retried))
	for _, path := range retried {
		if _, ok := hashed[path]; ok {
			continue
		}
		hashed[path] = struct{}{}
		pending = append(pending, path)
	}

	return pending, nil
}

// MarkComplete writes the completion marker.
func (s *Store) MarkComplete(c Completion) error {
	return WriteCompletion(s.files.Complete, c)
}

// ClearComplete removes a stale completion marker.
func (s *Store) ClearComplete() error {
	err := os.Remove(s.files.Complete)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove completion marker: %w", err)
	}

	return nil
}

// Close flushes and closes every log and releases the lock.
func (s *Store) Close() error {
	var errs []error

	for _, file := range []*os.File{s.manifest, s.state, s.ledger, s.retry, s.recovered} {
		if file == nil {
			continue
		}
		if err := file.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := file.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	s.manifest, s.state, s.ledger, s.retry, s.recovered = nil, nil, nil, nil, nil

	if err := s.lock.release(); err != nil {
		errs = append(errs, err)
	}
	s.lock = nil

	return errors.Join(errs...)
}

func (s *Store) appendEntry(e Entry) error {
	_, err := s.manifest.WriteString(FormatEntry(e))
	if err != nil {
		return fmt.Errorf("failed to append manifest entry: %w", err)
	}

	err = s.manifest.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync manifest: %w", err)
	}

	return nil
}

func (s *Store) appendRetry(path string) error {
	_, err := s.retry.WriteString(path + "\n")
	if err != nil {
		return fmt.Errorf("failed to append retry row: %w", err)
	}

	err = s.retry.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync retry log: %w", err)
	}

	return nil
}

// appendRecovered credits the bytes of a retry-log path that hashed after
// its enumeration position was settled with a zero ledger row.
func (s *Store) appendRecovered(size int64, path string) error {
	_, err := s.recovered.WriteString(formatRecovered(size, path))
	if err != nil {
		return fmt.Errorf("failed to append recovered row: %w", err)
	}

	err = s.recovered.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync recovered log: %w", err)
	}

	return nil
}

// appendSettled writes the ledger row before the state row; alignLedger
// trims a ledger row orphaned by a crash between the two.
func (s *Store) appendSettled(path string, size int64) error {
	_, err := fmt.Fprintf(s.ledger, "%d\n", size)
	if err != nil {
		return fmt.Errorf("failed to append ledger row: %w", err)
	}

	_, err = s.state.WriteString(path + "\n")
	if err != nil {
		return fmt.Errorf("failed to append state row: %w", err)
	}

	return nil
}

func (s *Store) syncSettled() error {
	err := s.ledger.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}

	err = s.state.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync state log: %w", err)
	}

	return nil
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fileMode) // #nosec G304 G302
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

func writeSynced(path, content string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode) // #nosec G304 G302
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	_, err = file.WriteString(content)
	if err == nil {
		err = file.Sync()
	}

	closeErr := file.Close()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return closeErr
}

// repairTail truncates a file back to its last newline.
func repairTail(path string) error {
	file, err := os.OpenFile(path, os.O_RDWR, 0) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	end, err := lastNewline(file)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if end == info.Size() {
		return nil
	}

	err = file.Truncate(end)
	if err != nil {
		return fmt.Errorf("failed to truncate torn line in %s: %w", path, err)
	}

	return file.Sync()
}

// lastNewline returns the offset just past the final '\n', or 0.
func lastNewline(file *os.File) (int64, error) {
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, tailChunkBytes)
	pos := info.Size()

	for pos > 0 {
		n := int64(len(buf))
		if pos < n {
			n = pos
		}
		pos -= n

		_, err := file.ReadAt(buf[:n], pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		if i := strings.LastIndexByte(string(buf[:n]), '\n'); i >= 0 {
			return pos + int64(i) + 1, nil
		}
	}

	return 0, nil
}

// lastLine returns the final complete line of the file at path.
func lastLine(path string) (string, error) {
	file, err := os.Open(path) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	end, err := lastNewline(file)
	if err != nil || end == 0 {
		return "", err
	}

	// Walk back from the terminating newline to the previous one.
	var line []byte
	buf := make([]byte, tailChunkBytes)
	pos := end - 1

	for pos > 0 {
		n := int64(len(buf))
		if pos < n {
			n = pos
		}
		start := pos - n

		_, err := file.ReadAt(buf[:n], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}

		chunk := buf[:n]
		if i := strings.LastIndexByte(string(chunk), '\n'); i >= 0 {
			return string(chunk[i+1:]) + string(line), nil
		}

		line = append(append([]byte{}, chunk...), line...)
		pos = start
	}

	return string(line), nil
}

// readLines returns all complete lines of the file at path.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	text := string(data)
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	} else {
		return nil, nil
	}

	return strings.Split(text, "\n"), nil
}

// alignLedger makes the ledger exactly as long as the state log.
func alignLedger(statePath, ledgerPath string) error {
	stateRows, err := CountLines(statePath)
	if err != nil {
		return err
	}

	ledgerRows, err := CountLines(ledgerPath)
	if err != nil {
		return err
	}

	switch {
	case ledgerRows == stateRows:
		return nil
	case ledgerRows < stateRows:
		// Sizes are unknown; progress treats these rows as zero bytes.
		file, err := openAppend(ledgerPath)
		if err != nil {
			return err
		}
		_, err = file.WriteString(strings.Repeat("0\n", stateRows-ledgerRows))
		closeErr := file.Close()
		if err != nil {
			return fmt.Errorf("failed to pad ledger: %w", err)
		}
		return closeErr
	default:
		lines, err := readLines(ledgerPath)
		if err != nil {
			return err
		}
		content := ""
		if stateRows > 0 {
			content = strings.Join(lines[:stateRows], "\n") + "\n"
		}
		return writeSynced(ledgerPath, content)
	}
}

// reconcileRecovered restores recovered rows lost between a retried file's
// manifest entry and its recovered row. Only paths settled with a zero ledger
// row are credited; a failure re-hashed by resume already has its size there.
func reconcileRecovered(files Files) error {
	retried, err := readLines(files.Retry)
	if err != nil || len(retried) == 0 {
		return err
	}

	credited, err := recoveredBytes(files.Recovered, nil)
	if err != nil {
		return err
	}

	current, err := Read(files.Manifest)
	if err != nil {
		return err
	}

	sizes := make(map[string]int64, len(current.Entries))
	for _, entry := range current.Entries {
		sizes[entry.Path] = entry.Size
	}

	zeroed, err := zeroSettled(files)
	if err != nil {
		return err
	}

	var missing strings.Builder
	for _, path := range retried {
		size, hashed := sizes[path]
		if _, done := credited.paths[path]; done || !hashed || !zeroed[path] {
			continue
		}
		credited.paths[path] = struct{}{}
		missing.WriteString(formatRecovered(size, path))
	}

	if missing.Len() == 0 {
		return nil
	}

	file, err := openAppend(files.Recovered)
	if err != nil {
		return err
	}

	_, err = file.WriteString(missing.String())
	if err == nil {
		err = file.Sync()
	}

	closeErr := file.Close()
	if err != nil {
		return fmt.Errorf("failed to restore recovered rows: %w", err)
	}

	return closeErr
}

// zeroSettled returns the state-log paths whose ledger row is zero.
func zeroSettled(files Files) (map[string]bool, error) {
	state, err := readLines(files.State)
	if err != nil {
		return nil, err
	}

	ledger, err := readLines(files.Ledger)
	if err != nil {
		return nil, err
	}

	zeroed := make(map[string]bool)
	for i, path := range state[:min(len(state), len(ledger))] {
		zeroed[path] = ledger[i] == "0"
	}

	return zeroed, nil
}

type recovered struct {
	paths map[string]struct{}
	bytes int64
}

// recoveredBytes sums the recovered log once per path. When hashed is not
// nil, rows for paths it does not contain are ignored.
func recoveredBytes(path string, hashed map[string]struct{}) (recovered, error) {
	out := recovered{paths: make(map[string]struct{})}

	lines, err := readLines(path)
	if err != nil {
		return out, err
	}

	for _, line := range lines {
		size, p, ok := ParseRecovered(line)
		if !ok {
			continue
		}
		if _, dup := out.paths[p]; dup {
			continue
		}
		if hashed != nil {
			if _, ok := hashed[p]; !ok {
				continue
			}
		}
		out.paths[p] = struct{}{}
		out.bytes += size
	}

	return out, nil
}


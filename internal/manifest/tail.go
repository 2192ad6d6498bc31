package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Tail reads complete lines appended to a file since the previous call.
// It never holds the file open between calls, so it is safe to use on logs
// another process is writing.
type Tail struct {
	path    string
	offset  int64
	partial []byte
}

// NewTail starts tailing path from its beginning.
func NewTail(path string) *Tail {
	return &Tail{path: path}
}

// ReadLines returns the lines completed since the last call. A trailing
// fragment without a newline is kept until it is finished.
//
// When the file shrank since the last call (a torn-line repair or ledger
// realignment), reading starts over from the beginning and restarted is
// true: lines then holds the whole file, not an increment.
func (t *Tail) ReadLines() (lines []string, restarted bool, err error) {
	file, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		restarted = t.offset > 0
		t.Rewind()
		return nil, restarted, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to open %s: %w", t.path, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, false, fmt.Errorf("failed to stat %s: %w", t.path, err)
	}

	if info.Size() < t.offset {
		t.Rewind()
		restarted = true
	}

	_, err = file.Seek(t.offset, io.SeekStart)
	if err != nil {
		return nil, restarted, fmt.Errorf("failed to seek %s: %w", t.path, err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, restarted, fmt.Errorf("failed to read %s: %w", t.path, err)
	}
	t.offset += int64(len(data))

	data = append(t.partial, data...)
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		t.partial = data
		return nil, restarted, nil
	}

	t.partial = append([]byte(nil), data[end+1:]...)

	return stringLines(data[:end]), restarted, nil
}

// Rewind makes the next ReadLines start from the beginning of the file.
func (t *Tail) Rewind() {
	t.offset = 0
	t.partial = nil
}

func stringLines(data []byte) []string {
	parts := bytes.Split(data, []byte{'\n'})
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = string(part)
	}

	return lines
}

// SumLedger returns the number of rows in the ledger at path and their total.
func SumLedger(path string) (int, int64, error) {
	lines, err := readLines(path)
	if err != nil {
		return 0, 0, err
	}

	rows, total := sumRows(lines)

	return rows, total, nil
}

// ParseRecovered splits a recovered-log row into its size and path.
func ParseRecovered(line string) (int64, string, bool) {
	sizeText, path, ok := strings.Cut(line, ",")
	if !ok || path == "" {
		return 0, "", false
	}

	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil || size < 0 {
		return 0, "", false
	}

	return size, path, true
}

func formatRecovered(size int64, path string) string {
	return strconv.FormatInt(size, 10) + "," + path + "\n"
}

func sumRows(lines []string) (int, int64) {
	var total int64
	for _, line := range lines {
		n, err := strconv.ParseInt(line, 10, 64)
		if err == nil {
			total += n
		}
	}

	return len(lines), total
}

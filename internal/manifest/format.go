// Package manifest is the durable record of a hashed tree.
//
// Each manifest X.manifest has companion append-only logs:
//
//	X.manifest           header, then one "size,digest,path" line per hashed file
//	X.manifest.state     one path per settled enumeration position
//	X.manifest.bytes     one size per state row (0 for a failed file)
//	X.manifest.retry     paths whose digest failed, re-dispatched next run
//	X.manifest.recovered "size,path" per retry-log path a later run hashed
//	X.manifest.complete  completion marker (JSON)
//	X.manifest.lock      advisory lock held while a pipeline writes
//
// A file is done when it has both a manifest entry and a state row. The
// manifest entry is always written and synced first, so a crash can leave a
// hashed-but-unsettled file (re-hashed next run, giving a harmless duplicate
// entry) but never a settled-but-unhashed one.
//
// Bytes done is the ledger sum (capped at the state row count) plus the
// recovered log, so a tree whose failures were all retried reaches its
// enumerated total.
package manifest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joe/migrate-verify/pkg/digest"
)

// Exported constants.
const (
	// FormatVersion is written to every header.
	FormatVersion = 1
	// HeaderTitle is the first header line.
	HeaderTitle = "# migrate-verify manifest"
)

// Exported variables.
var (
	ErrBadHeader = errors.New("invalid manifest header")
	ErrBadEntry  = errors.New("invalid manifest entry")
)

// Header identifies the format and the algorithm of a manifest.
type Header struct {
	Version   int
	Algorithm digest.Algorithm
	Root      string
	Created   time.Time
	Tool      string
}

// Entry is one hashed file.
type Entry struct {
	Size   int64
	Digest string
	Path   string
}

// Manifest is a fully read manifest file.
type Manifest struct {
	Path    string
	Header  Header
	Entries []Entry

	// Complete is nil when no completion marker exists.
	Complete *Completion

	// Malformed counts lines that were skipped.
	Malformed int
}

// Files names the companion logs of one manifest.
type Files struct {
	Manifest  string
	State     string
	Ledger    string
	Retry     string
	// Recovered holds "size,path" for retry-log paths hashed by a later run.
	Recovered string
	Lock      string
	Complete  string
}

// FilesFor derives the companion file names for manifestPath.
func FilesFor(manifestPath string) Files {
	return Files{
		Manifest:  manifestPath,
		State:     manifestPath + ".state",
		Ledger:    manifestPath + ".bytes",
		Retry:     manifestPath + ".retry",
		Recovered: manifestPath + ".recovered",
		Lock:      manifestPath + ".lock",
		Complete:  manifestPath + ".complete",
	}
}

// FormatHeader renders h as the header block, ending with a newline.
func FormatHeader(h Header) string {
	var b strings.Builder

	b.WriteString(HeaderTitle + "\n")
	fmt.Fprintf(&b, "# version: %d\n", h.Version)
	fmt.Fprintf(&b, "# algorithm: %s\n", h.Algorithm)
	if h.Root != "" {
		fmt.Fprintf(&b, "# root: %s\n", h.Root)
	}
	if !h.Created.IsZero() {
		fmt.Fprintf(&b, "# created: %s\n", h.Created.UTC().Format(time.RFC3339))
	}
	if h.Tool != "" {
		fmt.Fprintf(&b, "# tool: %s\n", h.Tool)
	}

	return b.String()
}

// FormatEntry renders one record line, ending with a newline.
func FormatEntry(e Entry) string {
	return strconv.FormatInt(e.Size, 10) + "," + e.Digest + "," + e.Path + "\n"
}

// ParseEntry parses a "size,digest,path" line. The path is everything after
// the second comma, so paths containing commas survive.
func ParseEntry(line string) (Entry, error) {
	fields := strings.SplitN(line, ",", 3) //nolint:mnd // size, digest, path
	if len(fields) != 3 || fields[2] == "" || fields[1] == "" {
		return Entry{}, fmt.Errorf("%w: %q", ErrBadEntry, line)
	}

	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || size < 0 {
		return Entry{}, fmt.Errorf("%w: bad size in %q", ErrBadEntry, line)
	}

	return Entry{Size: size, Digest: strings.ToLower(fields[1]), Path: fields[2]}, nil
}

// ReadHeader reads only the header block of the manifest at path.
func ReadHeader(path string) (Header, error) {
	file, err := os.Open(path) // #nosec G304 - operator-supplied manifest
	if err != nil {
		return Header{}, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	return readHeader(bufio.NewReader(file))
}

// Read reads the manifest at path with its completion marker.
// A final line without a trailing newline is a torn write and is ignored.
func Read(path string) (*Manifest, error) {
	file, err := os.Open(path) // #nosec G304 - operator-supplied manifest
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	reader := bufio.NewReaderSize(file, 1<<16) //nolint:mnd // 64 KiB read buffer

	header, err := readHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	result := &Manifest{Path: path, Header: header}

	handle := func(line string) {
		if line == "" || strings.HasPrefix(line, "#") {
			return
		}
		entry, err := ParseEntry(line)
		if err != nil {
			result.Malformed++
			return
		}
		result.Entries = append(result.Entries, entry)
	}

	for {
		line, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) {
			break // partial trailing line, if any, is dropped
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}
		handle(strings.TrimSuffix(line, "\n"))
	}

	result.Complete, err = ReadCompletion(FilesFor(path).Complete)
	if err != nil {
		return nil, err
	}

	return result, nil
}

// readHeader consumes the leading "#" lines, leaving reader at the first record.
func readHeader(reader *bufio.Reader) (Header, error) {
	var header Header

	first, err := reader.ReadString('\n')
	if err != nil || strings.TrimSuffix(first, "\n") != HeaderTitle {
		return Header{}, fmt.Errorf("%w: missing title line", ErrBadHeader)
	}

	for {
		peek, err := reader.Peek(1)
		if err != nil || peek[0] != '#' {
			break
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			return Header{}, fmt.Errorf("%w: truncated header", ErrBadHeader)
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(strings.TrimSuffix(line, "\n"), "#"), ":")
		if !ok {
			continue
		}

		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "version":
			header.Version, err = strconv.Atoi(value)
			if err != nil {
				return Header{}, fmt.Errorf("%w: version %q", ErrBadHeader, value)
			}
		case "algorithm":
			header.Algorithm, err = digest.ParseAlgorithm(value)
			if err != nil {
				return Header{}, fmt.Errorf("%w: %w", ErrBadHeader, err)
			}
		case "root":
			header.Root = value
		case "created":
			header.Created, _ = time.Parse(time.RFC3339, value)
		case "tool":
			header.Tool = value
		}
	}

	if !header.Algorithm.Valid() {
		return Header{}, fmt.Errorf("%w: no algorithm", ErrBadHeader)
	}

	if header.Version != FormatVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrBadHeader, header.Version)
	}

	return header, nil
}

// CountLines counts complete (newline-terminated) lines in the file at path.
// A missing file has zero lines.
func CountLines(path string) (int, error) {
	file, err := os.Open(path) // #nosec G304 - companion log path
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	count := 0
	buf := make([]byte, 1<<16) //nolint:mnd // 64 KiB read buffer

	for {
		n, err := file.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})

		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
}

package filesystem

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kr/fs"
)

// Exported variables.
var (
	ErrEnumeration = errors.New("enumeration failed")
)

// Enumerator produces stably ordered enumerations of regular files.
type Enumerator struct {
	fs     FileSystem
	filter *DenyFilter
}

// NewEnumerator creates an enumerator over fsys that drops paths the filter
// excludes. A nil filter keeps everything.
func NewEnumerator(fsys FileSystem, filter *DenyFilter) *Enumerator {
	if fsys == nil {
		fsys = NewRealFileSystem()
	}

	return &Enumerator{fs: fsys, filter: filter}
}

// Enumerate walks root and returns its regular files sorted by parent
// directory, then file name.
//
// An unreadable root is an ErrEnumeration. Unreadable subtrees are skipped
// and reported through Enumeration.Problems; everything else is still listed.
func (e *Enumerator) Enumerate(root string) (*Enumeration, error) {
	rootInfo, err := e.fs.Lstat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}

	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrEnumeration, root)
	}

	if _, err := e.fs.ReadDir(root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumeration, err)
	}

	result := &Enumeration{Root: root}
	walker := fs.WalkFS(root, e.fs)

	for walker.Step() {
		path := walker.Path()

		if err := walker.Err(); err != nil {
			result.Problems = append(result.Problems, fmt.Errorf("%s: %w", path, err))
			continue
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			result.Problems = append(result.Problems, err)
			continue
		}

		if relPath == "." {
			continue
		}

		info := walker.Stat()
		if info.IsDir() {
			if e.filter.Excludes(relPath, true) {
				walker.SkipDir()
			}
			continue
		}

		if !info.Mode().IsRegular() || e.filter.Excludes(relPath, false) {
			continue
		}

		// one record per line: a newline cannot be represented
		if strings.ContainsAny(path, "\n\r") {
			result.Problems = append(result.Problems, fmt.Errorf("%q: path contains a line break", path))
			continue
		}

		result.files = append(result.files, FileInfo{
			Path:         path,
			RelativePath: relPath,
			Size:         info.Size(),
		})
		result.totalBytes += info.Size()
	}

	slices.SortFunc(result.files, compareSiblingOrder)

	return result, nil
}

// compareSiblingOrder orders by parent directory, then by name, which keeps
// siblings adjacent on disk-order-friendly media.
func compareSiblingOrder(a, b FileInfo) int {
	if c := cmp.Compare(filepath.Dir(a.RelativePath), filepath.Dir(b.RelativePath)); c != 0 {
		return c
	}

	return cmp.Compare(filepath.Base(a.RelativePath), filepath.Base(b.RelativePath))
}

// Enumeration is the sorted file list of one tree.
type Enumeration struct {
	Root string

	// Problems lists subtrees or entries that could not be read.
	Problems []error

	files      []FileInfo
	totalBytes int64
}

// At returns the file at index i.
func (en *Enumeration) At(i int) FileInfo {
	return en.files[i]
}

// Len returns the number of enumerated files.
func (en *Enumeration) Len() int {
	return len(en.files)
}

// Scan returns a fresh scanner that starts after skipping offset files.
func (en *Enumeration) Scan(offset int) FileScanner {
	return newSliceScanner(en.files, offset)
}

// TotalBytes returns the sum of file sizes at enumeration time.
func (en *Enumeration) TotalBytes() int64 {
	return en.totalBytes
}

package filesystem

// FileScanner is an iterator over enumerated files.
// It provides a simple Next pattern for traversing an enumeration.
type FileScanner interface {
	// Next advances to the next file and returns its info.
	// Returns (FileInfo{}, false) when done.
	Next() (FileInfo, bool)

	// Index returns the enumeration index of the file last returned by Next.
	Index() int
}

// FileInfo describes one enumerated regular file.
type FileInfo struct {
	// Path is the root joined with RelativePath.
	Path string

	// RelativePath is the path relative to the enumeration root.
	RelativePath string

	// Size is the file size in bytes at enumeration time.
	Size int64
}

// sliceScanner walks a sorted enumeration from a starting offset.
type sliceScanner struct {
	files []FileInfo
	index int
}

func newSliceScanner(files []FileInfo, offset int) *sliceScanner {
	offset = max(offset, 0)
	offset = min(offset, len(files))

	return &sliceScanner{files: files, index: offset - 1}
}

// Index returns the position of the current file in the enumeration.
func (s *sliceScanner) Index() int {
	return s.index
}

// Next advances to the next file and returns its info.
func (s *sliceScanner) Next() (FileInfo, bool) {
	if s.index+1 >= len(s.files) {
		s.index = len(s.files)
		return FileInfo{}, false
	}

	s.index++

	return s.files[s.index], true
}

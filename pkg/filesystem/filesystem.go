// Package filesystem enumerates the regular files of a tree in a stable,
// reproducible order.
//
// The order (parent directory, then file name) is the same on every run
// against an unchanged tree, which lets a caller resume by skipping the first
// N entries instead of testing each path for membership.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileSystem is the read-only view of a tree that the enumerator walks.
// Its shape matches kr/fs.FileSystem so the walker can drive any implementation.
type FileSystem interface {
	// ReadDir returns the entries of dirname sorted by name.
	ReadDir(dirname string) ([]os.FileInfo, error)
	// Lstat describes name without following symlinks.
	Lstat(name string) (os.FileInfo, error)
	// Join joins path elements.
	Join(elem ...string) string
}

// RealFileSystem implements FileSystem using the os package.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem instance.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// Join joins path elements with the OS separator.
func (fs *RealFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// Lstat returns file information without following symlinks.
func (fs *RealFileSystem) Lstat(name string) (os.FileInfo, error) {
	info, err := os.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", name, err)
	}

	return info, nil
}

// ReadDir lists a directory. Entries that vanish between listing and stat
// are dropped rather than failing the whole directory.
func (fs *RealFileSystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dirname, err)
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	return infos, nil
}

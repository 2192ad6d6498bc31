package filesystem

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockFileSystem is an in-memory tree for testing enumeration without disk I/O.
// Paths use forward slashes.
type MockFileSystem struct {
	mu      sync.RWMutex
	entries map[string]*mockEntry
	broken  map[string]bool
}

type mockEntry struct {
	size  int64
	mode  os.FileMode
	isDir bool
}

// mockFileInfo implements os.FileInfo for mock entries.
type mockFileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	isDir bool
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return time.Time{} }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// NewMockFileSystem creates an empty mock tree.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		entries: map[string]*mockEntry{},
		broken:  map[string]bool{},
	}
}

// AddFile adds a regular file, creating parent directories.
func (m *MockFileSystem) AddFile(name string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addParents(name)
	m.entries[path.Clean(name)] = &mockEntry{size: size, mode: 0o644}
}

// AddSymlink adds a symlink entry, which enumeration must skip.
func (m *MockFileSystem) AddSymlink(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addParents(name)
	m.entries[path.Clean(name)] = &mockEntry{mode: os.ModeSymlink | 0o777}
}

// AddDir adds a directory, creating parent directories.
func (m *MockFileSystem) AddDir(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addDirLocked(path.Clean(name))
}

// BreakDir makes ReadDir of name fail, simulating an unreadable subtree.
func (m *MockFileSystem) BreakDir(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.broken[path.Clean(name)] = true
}

// Join joins path elements with forward slashes.
func (m *MockFileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

// Lstat returns information about name.
func (m *MockFileSystem) Lstat(name string) (os.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clean := path.Clean(name)
	entry, ok := m.entries[clean]
	if !ok {
		return nil, fmt.Errorf("lstat %s: %w", name, os.ErrNotExist)
	}

	return entry.info(path.Base(clean)), nil
}

// ReadDir lists the direct children of dirname sorted by name.
func (m *MockFileSystem) ReadDir(dirname string) ([]os.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clean := path.Clean(dirname)
	if m.broken[clean] {
		return nil, fmt.Errorf("open %s: %w", dirname, os.ErrPermission)
	}

	entry, ok := m.entries[clean]
	if !ok || !entry.isDir {
		return nil, fmt.Errorf("open %s: %w", dirname, os.ErrNotExist)
	}

	prefix := clean + "/"
	var infos []os.FileInfo
	for name, child := range m.entries {
		if !strings.HasPrefix(name, prefix) || strings.Contains(name[len(prefix):], "/") {
			continue
		}
		infos = append(infos, child.info(path.Base(name)))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	return infos, nil
}

func (m *MockFileSystem) addParents(name string) {
	dir := path.Dir(path.Clean(name))
	m.addDirLocked(dir)
}

func (m *MockFileSystem) addDirLocked(dir string) {
	for {
		if _, ok := m.entries[dir]; !ok {
			m.entries[dir] = &mockEntry{isDir: true, mode: os.ModeDir | 0o755}
		}

		parent := path.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func (e *mockEntry) info(name string) os.FileInfo {
	return &mockFileInfo{name: name, size: e.size, mode: e.mode, isDir: e.isDir}
}

// Package dupes finds content stored more than once in a manifest.
package dupes

import (
	"sort"

	"github.com/joe/migrate-verify/internal/manifest"
)

// Set is one digest held by more than one path.
type Set struct {
	Digest string
	Size   int64 // per copy
	Paths  []string
}

// Count is the number of copies.
func (s Set) Count() int {
	return len(s.Paths)
}

// Wasted is the space that removing all but one copy would free.
func (s Set) Wasted() int64 {
	return s.Size * int64(len(s.Paths)-1)
}

// Report lists duplicate sets, largest waste first.
type Report struct {
	Entries     int // distinct paths examined
	Sets        []Set
	Wasted      int64
	Incomplete  bool
	MinimumSize int64
}

// Options filters the report.
type Options struct {
	// MinSize ignores files smaller than this many bytes.
	MinSize int64
}

// Find groups m's entries by digest. Repeated entries for one path (left by
// a resumed run) count once.
func Find(m *manifest.Manifest, opts Options) *Report {
	latest := make(map[string]manifest.Entry, len(m.Entries))
	for _, e := range m.Entries {
		latest[e.Path] = e
	}

	groups := make(map[string][]manifest.Entry)
	for _, e := range latest {
		if e.Size < opts.MinSize {
			continue
		}
		groups[e.Digest] = append(groups[e.Digest], e)
	}

	report := &Report{
		Entries:     len(latest),
		Incomplete:  m.Complete == nil,
		MinimumSize: opts.MinSize,
	}

	for sum, entries := range groups {
		if len(entries) < 2 { //nolint:mnd // a set needs two copies
			continue
		}

		set := Set{Digest: sum, Size: entries[0].Size, Paths: make([]string, 0, len(entries))}
		for _, e := range entries {
			set.Paths = append(set.Paths, e.Path)
		}
		sort.Strings(set.Paths)

		report.Sets = append(report.Sets, set)
		report.Wasted += set.Wasted()
	}

	sort.Slice(report.Sets, func(i, j int) bool {
		a, b := report.Sets[i], report.Sets[j]
		if a.Wasted() != b.Wasted() {
			return a.Wasted() > b.Wasted()
		}
		return a.Digest < b.Digest
	})

	return report
}

// FindFile reads the manifest at path and reports its duplicates.
func FindFile(path string, opts Options) (*Report, error) {
	m, err := manifest.Read(path)
	if err != nil {
		return nil, err
	}

	return Find(m, opts), nil
}

package filesystem

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultDenyPatterns are platform metadata files and directories that never
// belong to a migrated tree.
func DefaultDenyPatterns() []string {
	return []string{
		"**/.DS_Store",
		"**/._*",
		"**/.Spotlight-V100/**",
		"**/.Trashes/**",
		"**/.fseventsd/**",
		"**/.TemporaryItems/**",
		"**/.DocumentRevisions-V100/**",
		"**/System Volume Information/**",
		"**/$RECYCLE.BIN/**",
		"**/lost+found/**",
		"**/Thumbs.db",
		"**/desktop.ini",
	}
}

// DenyFilter excludes paths matching any of a set of glob patterns.
type DenyFilter struct {
	patterns []string
}

// NewDenyFilter creates a filter from the default deny-list plus extra patterns.
// Matching is case-insensitive and uses doublestar syntax. Blank extras are
// ignored; a malformed one is an error wrapping doublestar.ErrBadPattern.
func NewDenyFilter(extra ...string) (*DenyFilter, error) {
	defaults := DefaultDenyPatterns()

	patterns := make([]string, 0, len(defaults)+len(extra))
	for _, pattern := range defaults {
		patterns = append(patterns, strings.ToLower(pattern))
	}

	for _, pattern := range extra {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if err := ValidatePattern(pattern); err != nil {
			return nil, err
		}

		patterns = append(patterns, strings.ToLower(pattern))
	}

	return &DenyFilter{patterns: patterns}, nil
}

// ValidatePattern reports a malformed exclude glob.
func ValidatePattern(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("%w: exclude %q", doublestar.ErrBadPattern, pattern)
	}

	return nil
}

// Excludes reports whether relativePath should be left out of an enumeration.
// For a directory, a match means its whole subtree is skipped.
func (f *DenyFilter) Excludes(relativePath string, isDir bool) bool {
	if f == nil {
		return false
	}

	candidate := strings.ToLower(toSlash(relativePath))
	if isDir {
		// "dir/**" patterns match children, so test a synthetic child
		candidate += "/_"
	}

	for _, pattern := range f.patterns {
		if matched, _ := doublestar.Match(pattern, candidate); matched {
			return true
		}
	}

	return false
}

// Patterns returns the active patterns.
func (f *DenyFilter) Patterns() []string {
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)

	return out
}

func toSlash(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

package compare

import (
	"errors"
	"fmt"
	pathpkg "path"
	"sort"
	"strings"
)

// Exported variables.
var (
	ErrBadMapping = errors.New("invalid root mapping")
)

// RootMapping rewrites paths under Alias to start with Canonical instead.
// A plain root strip is a mapping to "".
type RootMapping struct {
	Alias     string
	Canonical string
}

// ParseMapping parses "ALIAS=CANONICAL" or a bare "ALIAS" (strip only).
func ParseMapping(s string) (RootMapping, error) {
	alias, canonical, _ := strings.Cut(s, "=")

	alias = trimSlash(alias)
	if alias == "" {
		return RootMapping{}, fmt.Errorf("%w: %q has no alias", ErrBadMapping, s)
	}

	return RootMapping{Alias: alias, Canonical: trimSlash(canonical)}, nil
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (m *RootMapping) UnmarshalText(text []byte) error {
	parsed, err := ParseMapping(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m RootMapping) String() string {
	return m.Alias + "=" + m.Canonical
}

// Normalizer turns manifest paths into join keys for one side.
type Normalizer struct {
	mappings []RootMapping
}

// NewNormalizer orders mappings so the longest alias wins.
func NewNormalizer(mappings ...RootMapping) *Normalizer {
	sorted := append([]RootMapping(nil), mappings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Alias) > len(sorted[j].Alias)
	})

	return &Normalizer{mappings: sorted}
}

// Normalize unwraps "container:inner" to the inner path, applies the first
// matching root mapping, and drops leading "/" and "./" so both sides share
// one relative key space.
func (n *Normalizer) Normalize(path string) string {
	if _, inner, ok := strings.Cut(path, ":"); ok {
		path = inner
	}

	path = strings.ReplaceAll(path, "\\", "/")

	if n != nil {
		for _, m := range n.mappings {
			if rest, ok := underRoot(path, m.Alias); ok {
				path = m.Canonical + "/" + rest
				break
			}
		}
	}

	for {
		switch {
		case strings.HasPrefix(path, "/"):
			path = path[1:]
		case strings.HasPrefix(path, "./"):
			path = path[2:]
		default:
			return path
		}
	}
}

// headerMapping turns a manifest's recorded root into a strip-only mapping.
func headerMapping(root string) (RootMapping, bool) {
	if _, inner, ok := strings.Cut(root, ":"); ok {
		root = inner
	}

	root = strings.TrimSpace(strings.ReplaceAll(root, "\\", "/"))
	if root == "" {
		return RootMapping{}, false
	}

	root = pathpkg.Clean(root)
	if root == "." || root == "/" {
		return RootMapping{}, false
	}

	return RootMapping{Alias: root}, true
}

func underRoot(path, root string) (string, bool) {
	if path == root {
		return "", true
	}

	if strings.HasPrefix(path, root+"/") {
		return path[len(root)+1:], true
	}

	return "", false
}

func trimSlash(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 {
		s = strings.TrimRight(s, "/")
	}

	return s
}

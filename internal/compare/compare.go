// Package compare reconciles a source manifest with a destination manifest.
//
// Files are classified by content (digest set operations) for matched,
// missing and extra, and by normalized path for corrupted. A corrupted path
// is excluded from the digest classes so every file lands in exactly one.
package compare

import (
	"errors"
	"fmt"
	"sort"

	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/pkg/digest"
)

// Exported constants.
const (
	StatusVerified Status = "VERIFIED"
	StatusFailed   Status = "FAILED"
)

// Exported variables.
var (
	ErrAlgorithmMismatch  = errors.New("manifests use different digest algorithms")
	ErrIncompleteManifest = errors.New("manifest has no completion marker")
)

// Status is the overall verdict.
type Status string

// Options controls a comparison.
type Options struct {
	Source          []RootMapping
	Dest            []RootMapping
	AllowIncomplete bool
	// Details keeps the offending entries, not just the counts.
	Details bool
}

// Corruption is one path whose content differs between the sides.
type Corruption struct {
	Path         string
	SourceDigest string
	DestDigest   string
	SourceSize   int64
	DestSize     int64
}

// Details lists the offending entries, sorted by normalized path.
type Details struct {
	Missing   []manifest.Entry
	Extra     []manifest.Entry
	Corrupted []Corruption
}

// Report is the outcome of a comparison.
type Report struct {
	Algorithm digest.Algorithm

	SourcePaths int // distinct normalized paths
	DestPaths   int
	// SourceSkipped and DestSkipped count malformed manifest lines.
	SourceSkipped int
	DestSkipped   int

	Matched   int // distinct digests on both sides
	Missing   int // distinct digests only in source
	Extra     int // distinct digests only in destination
	Corrupted int // paths on both sides with different digests

	MatchedBytes int64
	MissingBytes int64
	ExtraBytes   int64

	Status  Status
	Details *Details
}

// Comparator holds the path normalization for each side.
type Comparator struct {
	opts   Options
	source *Normalizer
	dest   *Normalizer
}

// New creates a comparator.
func New(opts Options) *Comparator {
	return &Comparator{
		opts:   opts,
		source: NewNormalizer(opts.Source...),
		dest:   NewNormalizer(opts.Dest...),
	}
}

// CompareFiles reads both manifests and compares them.
func (c *Comparator) CompareFiles(sourcePath, destPath string) (*Report, error) {
	src, err := manifest.Read(sourcePath)
	if err != nil {
		return nil, err
	}

	dst, err := manifest.Read(destPath)
	if err != nil {
		return nil, err
	}

	return c.Compare(src, dst)
}

// Compare classifies every entry of src and dst. It refuses, without a
// partial result, to compare manifests of different algorithms or, unless
// AllowIncomplete is set, manifests without a completion marker.
func (c *Comparator) Compare(src, dst *manifest.Manifest) (*Report, error) {
	if src.Header.Algorithm != dst.Header.Algorithm {
		return nil, fmt.Errorf("%w: source %s, destination %s",
			ErrAlgorithmMismatch, src.Header.Algorithm, dst.Header.Algorithm)
	}

	if !c.opts.AllowIncomplete {
		for _, m := range []*manifest.Manifest{src, dst} {
			if m.Complete == nil {
				return nil, fmt.Errorf("%w: %s", ErrIncompleteManifest, m.Path)
			}
		}
	}

	srcByPath := byPath(src.Entries, withHeaderRoot(c.source, src.Header.Root))
	dstByPath := byPath(dst.Entries, withHeaderRoot(c.dest, dst.Header.Root))

	report := &Report{
		Algorithm:     src.Header.Algorithm,
		SourcePaths:   len(srcByPath),
		DestPaths:     len(dstByPath),
		SourceSkipped: src.Malformed,
		DestSkipped:   dst.Malformed,
	}

	if c.opts.Details {
		report.Details = &Details{}
	}

	corrupted := make(map[string]struct{})

	for _, path := range sortedKeys(srcByPath) {
		s := srcByPath[path]
		d, ok := dstByPath[path]
		if !ok || d.Digest == s.Digest {
			continue
		}

		corrupted[path] = struct{}{}
		report.Corrupted++

		if report.Details != nil {
			report.Details.Corrupted = append(report.Details.Corrupted, Corruption{
				Path: path, SourceDigest: s.Digest, DestDigest: d.Digest,
				SourceSize: s.Size, DestSize: d.Size,
			})
		}
	}

	srcDigests := byDigest(srcByPath, corrupted)
	dstDigests := byDigest(dstByPath, corrupted)

	for sum, entries := range srcDigests {
		if _, ok := dstDigests[sum]; ok {
			report.Matched++
			report.MatchedBytes += entries[0].Size
			continue
		}

		report.Missing++
		report.MissingBytes += entries[0].Size
		if report.Details != nil {
			report.Details.Missing = append(report.Details.Missing, entries...)
		}
	}

	for sum, entries := range dstDigests {
		if _, ok := srcDigests[sum]; ok {
			continue
		}

		report.Extra++
		report.ExtraBytes += entries[0].Size
		if report.Details != nil {
			report.Details.Extra = append(report.Details.Extra, entries...)
		}
	}

	if report.Details != nil {
		sortEntries(report.Details.Missing)
		sortEntries(report.Details.Extra)
	}

	report.Status = StatusFailed
	if report.Missing == 0 && report.Extra == 0 && report.Corrupted == 0 &&
		report.SourcePaths == report.DestPaths {
		report.Status = StatusVerified
	}

	return report, nil
}

// withHeaderRoot strips the root recorded in the manifest header when the
// side has no explicit mappings, so the path join works without flags.
func withHeaderRoot(n *Normalizer, root string) *Normalizer {
	if len(n.mappings) > 0 {
		return n
	}

	mapping, ok := headerMapping(root)
	if !ok {
		return n
	}

	return NewNormalizer(mapping)
}

// byPath keys entries by normalized path. Later entries replace earlier ones;
// duplicates come from re-hashing after a crash and carry the same content.
func byPath(entries []manifest.Entry, n *Normalizer) map[string]manifest.Entry {
	out := make(map[string]manifest.Entry, len(entries))
	for _, e := range entries {
		key := n.Normalize(e.Path)
		e.Path = key
		out[key] = e
	}

	return out
}

// byDigest groups entries by digest, leaving out the excluded paths.
func byDigest(entries map[string]manifest.Entry, exclude map[string]struct{}) map[string][]manifest.Entry {
	out := make(map[string][]manifest.Entry, len(entries))
	for path, e := range entries {
		if _, skip := exclude[path]; skip {
			continue
		}
		out[e.Digest] = append(out[e.Digest], e)
	}

	return out
}

func sortedKeys(m map[string]manifest.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

func sortEntries(entries []manifest.Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}

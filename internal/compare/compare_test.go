//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package compare_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/internal/compare"
	"github.com/joe/migrate-verify/internal/hashengine"
	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/pkg/digest"
)

func complete(path string, algo digest.Algorithm, entries ...manifest.Entry) *manifest.Manifest {
	return &manifest.Manifest{
		Path:     path,
		Header:   manifest.Header{Version: manifest.FormatVersion, Algorithm: algo},
		Entries:  entries,
		Complete: &manifest.Completion{Files: len(entries)},
	}
}

func entry(size int64, sum, path string) manifest.Entry {
	return manifest.Entry{Size: size, Digest: sum, Path: path}
}

func TestEndToEndMissingFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := complete("src", digest.SHA256, entry(100, "h1", "a"), entry(200, "h2", "b"))
	dst := complete("dst", digest.SHA256, entry(100, "h1", "a"))

	report, err := compare.New(compare.Options{Details: true}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Matched).To(Equal(1))
	g.Expect(report.Missing).To(Equal(1))
	g.Expect(report.Extra).To(BeZero())
	g.Expect(report.Corrupted).To(BeZero())
	g.Expect(report.Status).To(Equal(compare.StatusFailed))
	g.Expect(report.MissingBytes).To(Equal(int64(200)))
	g.Expect(report.Details.Missing).To(Equal([]manifest.Entry{entry(200, "h2", "b")}))
}

func TestIdenticalTreesVerify(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := complete("src", digest.BLAKE3,
		entry(1, "d1", "/mnt/old/x/1"), entry(2, "d2", "/mnt/old/x/2"),
		entry(1, "d1", "/mnt/old/x/1")) // crash duplicate
	dst := complete("dst", digest.BLAKE3,
		entry(2, "d2", "/data/new/x/2"), entry(1, "d1", "/data/new/x/1"))

	report, err := compare.New(compare.Options{
		Source: []compare.RootMapping{{Alias: "/mnt/old"}},
		Dest:   []compare.RootMapping{{Alias: "/data/new"}},
	}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Status).To(Equal(compare.StatusVerified))
	g.Expect(report.Matched).To(Equal(2))
	g.Expect(report.SourcePaths).To(Equal(2))
	g.Expect(report.Details).To(BeNil())
}

func TestCorruptionIsExclusive(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := complete("src", digest.SHA256, entry(10, "good", "/s/ok"), entry(20, "orig", "/s/photo.jpg"))
	dst := complete("dst", digest.SHA256, entry(10, "good", "/d/ok"), entry(20, "flipped", "/d/photo.jpg"))

	report, err := compare.New(compare.Options{
		Source:  []compare.RootMapping{{Alias: "/s"}},
		Dest:    []compare.RootMapping{{Alias: "/d"}},
		Details: true,
	}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Corrupted).To(Equal(1))
	g.Expect(report.Matched).To(Equal(1))
	g.Expect(report.Missing).To(BeZero())
	g.Expect(report.Extra).To(BeZero())
	g.Expect(report.Status).To(Equal(compare.StatusFailed))
	g.Expect(report.Details.Corrupted).To(Equal([]compare.Corruption{{
		Path: "photo.jpg", SourceDigest: "orig", DestDigest: "flipped", SourceSize: 20, DestSize: 20,
	}}))
	g.Expect(report.Details.Missing).To(BeEmpty())
	g.Expect(report.Details.Extra).To(BeEmpty())
}

func TestComparatorSymmetry(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	a := complete("a", digest.SHA256,
		entry(1, "h1", "one"), entry(2, "h2", "two"), entry(3, "h3", "three"), entry(4, "h4", "same-path"))
	b := complete("b", digest.SHA256,
		entry(1, "h1", "uno"), entry(5, "h5", "five"), entry(4, "h9", "same-path"))

	cmp := compare.New(compare.Options{})

	ab, err := cmp.Compare(a, b)
	g.Expect(err).ShouldNot(HaveOccurred())
	ba, err := cmp.Compare(b, a)
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(ab.Matched).To(Equal(ba.Matched))
	g.Expect(ab.Missing).To(Equal(ba.Extra))
	g.Expect(ab.Extra).To(Equal(ba.Missing))
	g.Expect(ab.Corrupted).To(Equal(ba.Corrupted))

	g.Expect(ab.Matched).To(Equal(1))
	g.Expect(ab.Missing).To(Equal(2))
	g.Expect(ab.Extra).To(Equal(1))
	g.Expect(ab.Corrupted).To(Equal(1))
}

func TestContainerEntriesMatchByInnerPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := complete("src", digest.SHA256,
		entry(5, "n1", "/mnt/old/docs/what?.txt"), entry(6, "n2", "/mnt/old/docs/plain.txt"))
	dst := complete("dst", digest.SHA256,
		entry(5, "n1", "/mnt/new/unrepresentable.tar:docs/what?.txt"),
		entry(6, "n2", "/mnt/new/docs/plain.txt"))

	report, err := compare.New(compare.Options{
		Source: []compare.RootMapping{{Alias: "/mnt/old"}},
		Dest:   []compare.RootMapping{{Alias: "/mnt/new"}},
	}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Status).To(Equal(compare.StatusVerified))
}

func TestAlgorithmMismatchProducesNoReport(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	report, err := compare.New(compare.Options{}).Compare(
		complete("a", digest.SHA256, entry(1, "x", "p")),
		complete("b", digest.BLAKE3, entry(1, "x", "p")))
	g.Expect(err).To(MatchError(compare.ErrAlgorithmMismatch))
	g.Expect(report).To(BeNil())
}

func TestIncompleteManifestIsRejected(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := complete("src", digest.SHA256, entry(1, "x", "p"))
	dst := complete("dst", digest.SHA256, entry(1, "x", "p"))
	dst.Complete = nil

	_, err := compare.New(compare.Options{}).Compare(src, dst)
	g.Expect(err).To(MatchError(compare.ErrIncompleteManifest))

	report, err := compare.New(compare.Options{AllowIncomplete: true}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Status).To(Equal(compare.StatusVerified))
}

func TestPathCountMismatchFails(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	// Two identical files in source collapse to one digest on a deduplicating
	// destination: no class is non-empty but a file is gone.
	src := complete("src", digest.SHA256, entry(1, "x", "a"), entry(1, "x", "b"))
	dst := complete("dst", digest.SHA256, entry(1, "x", "a"))

	report, err := compare.New(compare.Options{}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Missing).To(BeZero())
	g.Expect(report.Status).To(Equal(compare.StatusFailed))
}

func TestCompareFilesReadsFromDisk(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	dir := t.TempDir()
	write := func(name string, algo digest.Algorithm, body string) string {
		path := filepath.Join(dir, name)
		content := manifest.FormatHeader(manifest.Header{Version: manifest.FormatVersion, Algorithm: algo}) + body
		g.Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		g.Expect(manifest.WriteCompletion(manifest.FilesFor(path).Complete, manifest.Completion{})).To(Succeed())
		return path
	}

	src := write("src.manifest", digest.SHA256, "3,abc,/s/a,b.txt\n")
	dst := write("dst.manifest", digest.SHA256, "3,ABC,/d/a,b.txt\n")

	report, err := compare.New(compare.Options{
		Source: []compare.RootMapping{{Alias: "/s"}},
		Dest:   []compare.RootMapping{{Alias: "/d"}},
	}).CompareFiles(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Status).To(Equal(compare.StatusVerified))
}

func TestRecordedRootsAreStrippedByDefault(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	state := t.TempDir()
	hash := func(label, body string) string {
		root := t.TempDir()
		g.Expect(os.WriteFile(filepath.Join(root, "a.txt"), []byte(body), 0o600)).To(Succeed())
		g.Expect(os.WriteFile(filepath.Join(root, "same.txt"), []byte("unchanged"), 0o600)).To(Succeed())

		path := filepath.Join(state, label+".manifest")
		_, err := hashengine.NewPipeline(label, root, path).Run(context.Background())
		g.Expect(err).ShouldNot(HaveOccurred())

		return path
	}

	src := hash(hashengine.LabelSource, "hello")
	dst := hash(hashengine.LabelDest, "hellO")

	report, err := compare.New(compare.Options{Details: true}).CompareFiles(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Corrupted).To(Equal(1))
	g.Expect(report.Details.Corrupted[0].Path).To(Equal("a.txt"))
	g.Expect(report.Matched).To(Equal(1))
	g.Expect(report.Missing).To(BeZero())
	g.Expect(report.Extra).To(BeZero())
	g.Expect(report.Status).To(Equal(compare.StatusFailed))
}

func TestExplicitMappingOverridesRecordedRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	src := complete("src", digest.SHA256, entry(1, "h1", "/mnt/old/photos/a.jpg"))
	src.Header.Root = "/mnt/old"
	dst := complete("dst", digest.SHA256, entry(1, "h2", "/tank/photos/a.jpg"))
	dst.Header.Root = "/tank/photos"

	// The recorded roots key the sides as photos/a.jpg and a.jpg.
	report, err := compare.New(compare.Options{}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Corrupted).To(BeZero())
	g.Expect(report.Missing).To(Equal(1))
	g.Expect(report.Extra).To(Equal(1))

	report, err = compare.New(compare.Options{
		Dest: []compare.RootMapping{{Alias: "/tank"}},
	}).Compare(src, dst)
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Corrupted).To(Equal(1))
	g.Expect(report.Missing).To(BeZero())
	g.Expect(report.Extra).To(BeZero())
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	n := compare.NewNormalizer(
		compare.RootMapping{Alias: "/mnt"},
		compare.RootMapping{Alias: "/mnt/old", Canonical: "archive"},
	)

	tests := []struct {
		input    string
		expected string
	}{
		{"/mnt/old/a/b", "archive/a/b"},
		{"/mnt/other/c", "other/c"},
		{"/mnt/oldish/c", "oldish/c"},
		{"./rel/path", "rel/path"},
		{"/x.zip:/mnt/old/in/zip", "archive/in/zip"},
		{"bundle.tar:inner/file", "inner/file"},
		{"/elsewhere/f", "elsewhere/f"},
	}

	g := NewWithT(t)

	for _, tt := range tests {
		g.Expect(n.Normalize(tt.input)).To(Equal(tt.expected), tt.input)
	}
}

func TestParseMapping(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m, err := compare.ParseMapping("/mnt/old/=photos")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(m).To(Equal(compare.RootMapping{Alias: "/mnt/old", Canonical: "photos"}))

	m, err = compare.ParseMapping("/mnt/old")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(m.Canonical).To(BeEmpty())

	_, err = compare.ParseMapping("=x")
	g.Expect(err).To(MatchError(compare.ErrBadMapping))
}

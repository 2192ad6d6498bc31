//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package dupes_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/internal/dupes"
	"github.com/joe/migrate-verify/internal/manifest"
	"github.com/joe/migrate-verify/pkg/digest"
)

func TestThreeCopiesWasteTwo(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Size: 1000, Digest: "D", Path: "/a"},
		{Size: 1000, Digest: "D", Path: "/b"},
		{Size: 1000, Digest: "D", Path: "/c"},
		{Size: 50, Digest: "U", Path: "/u"},
	}}

	report := dupes.Find(m, dupes.Options{})
	g.Expect(report.Sets).To(HaveLen(1))
	g.Expect(report.Sets[0].Digest).To(Equal("D"))
	g.Expect(report.Sets[0].Count()).To(Equal(3))
	g.Expect(report.Sets[0].Paths).To(Equal([]string{"/a", "/b", "/c"}))
	g.Expect(report.Wasted).To(Equal(int64(2000)))
	g.Expect(report.Entries).To(Equal(4))
	g.Expect(report.Incomplete).To(BeTrue())
}

func TestRepeatedPathIsNotADuplicate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Size: 10, Digest: "X", Path: "/same"},
		{Size: 10, Digest: "X", Path: "/same"},
	}}

	g.Expect(dupes.Find(m, dupes.Options{}).Sets).To(BeEmpty())
}

func TestSetsOrderedByWasteAndFiltered(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	m := &manifest.Manifest{Entries: []manifest.Entry{
		{Size: 10, Digest: "small", Path: "/s1"},
		{Size: 10, Digest: "small", Path: "/s2"},
		{Size: 500, Digest: "big", Path: "/b1"},
		{Size: 500, Digest: "big", Path: "/b2"},
		{Size: 100, Digest: "mid", Path: "/m1"},
		{Size: 100, Digest: "mid", Path: "/m2"},
		{Size: 100, Digest: "mid", Path: "/m3"},
	}}

	report := dupes.Find(m, dupes.Options{})
	g.Expect(report.Sets).To(HaveLen(3))
	g.Expect(report.Sets[0].Digest).To(Equal("big"))
	g.Expect(report.Sets[1].Digest).To(Equal("mid"))
	g.Expect(report.Sets[2].Digest).To(Equal("small"))
	g.Expect(report.Wasted).To(Equal(int64(500 + 200 + 10)))

	filtered := dupes.Find(m, dupes.Options{MinSize: 100})
	g.Expect(filtered.Sets).To(HaveLen(2))
	g.Expect(filtered.Wasted).To(Equal(int64(700)))
}

func TestFindFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	path := filepath.Join(t.TempDir(), "dst.manifest")
	body := manifest.FormatHeader(manifest.Header{Version: manifest.FormatVersion, Algorithm: digest.SHA256}) +
		"4,aa,/x/1\n4,aa,/x/2\n"
	g.Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())

	report, err := dupes.FindFile(path, dupes.Options{})
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(report.Wasted).To(Equal(int64(4)))

	_, err = dupes.FindFile(filepath.Join(t.TempDir(), "none"), dupes.Options{})
	g.Expect(err).To(HaveOccurred())
}

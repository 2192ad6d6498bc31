//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package filesystem_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/pkg/filesystem"
)

func relPaths(en *filesystem.Enumeration) []string {
	out := make([]string, 0, en.Len())
	scanner := en.Scan(0)
	for {
		file, ok := scanner.Next()
		if !ok {
			return out
		}
		out = append(out, file.RelativePath)
	}
}

func TestEnumerate_SortsByParentThenName(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := filesystem.NewMockFileSystem()
	mock.AddFile("/src/b.txt", 2)
	mock.AddFile("/src/a/z.txt", 3)
	mock.AddFile("/src/a.txt", 1)
	mock.AddFile("/src/a/b/c.txt", 4)
	mock.AddFile("/src/a/a.txt", 5)

	en, err := filesystem.NewEnumerator(mock, nil).Enumerate("/src")
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(relPaths(en)).To(Equal([]string{
		"a.txt",
		"b.txt",
		"a/a.txt",
		"a/z.txt",
		"a/b/c.txt",
	}))
	g.Expect(en.TotalBytes()).To(Equal(int64(15)))
	g.Expect(en.At(0).Path).To(Equal("/src/a.txt"))
}

func TestEnumerate_IsReproducible(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	root := t.TempDir()
	for _, name := range []string{"x/1", "x/2", "y/1", "top", "x/sub/deep"} {
		path := filepath.Join(root, name)
		g.Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		g.Expect(os.WriteFile(path, []byte(name), 0o600)).To(Succeed())
	}

	enumerator := filesystem.NewEnumerator(filesystem.NewRealFileSystem(), defaultFilter(t))

	first, err := enumerator.Enumerate(root)
	g.Expect(err).ShouldNot(HaveOccurred())

	second, err := enumerator.Enumerate(root)
	g.Expect(err).ShouldNot(HaveOccurred())

	g.Expect(first.Len()).To(Equal(5))
	g.Expect(relPaths(second)).To(Equal(relPaths(first)))
}

func TestEnumerate_DropsNoiseAndNonRegular(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := filesystem.NewMockFileSystem()
	mock.AddFile("/src/keep.jpg", 10)
	mock.AddFile("/src/.DS_Store", 1)
	mock.AddFile("/src/photos/._keep.jpg", 1)
	mock.AddFile("/src/.Spotlight-V100/store.db", 100)
	mock.AddFile("/src/photos/Thumbs.db", 1)
	mock.AddSymlink("/src/link")
	mock.AddDir("/src/empty")

	en, err := filesystem.NewEnumerator(mock, defaultFilter(t)).Enumerate("/src")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(relPaths(en)).To(Equal([]string{"keep.jpg"}))
}

func TestEnumerate_UnreadableSubtreeIsBestEffort(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := filesystem.NewMockFileSystem()
	mock.AddFile("/src/ok/one", 1)
	mock.AddFile("/src/bad/two", 2)
	mock.AddFile("/src/zzz", 3)
	mock.BreakDir("/src/bad")

	en, err := filesystem.NewEnumerator(mock, nil).Enumerate("/src")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(relPaths(en)).To(Equal([]string{"zzz", "ok/one"}))
	g.Expect(en.Problems).To(HaveLen(1))
}

func TestEnumerate_UnreadableRootFails(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := filesystem.NewMockFileSystem()
	mock.AddFile("/src/a", 1)
	mock.BreakDir("/src")

	_, err := filesystem.NewEnumerator(mock, nil).Enumerate("/src")
	g.Expect(err).To(MatchError(filesystem.ErrEnumeration))

	_, err = filesystem.NewEnumerator(mock, nil).Enumerate("/missing")
	g.Expect(err).To(MatchError(filesystem.ErrEnumeration))
}

func TestEnumeration_ScanFromOffset(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	mock := filesystem.NewMockFileSystem()
	for _, name := range []string{"a", "b", "c", "d"} {
		mock.AddFile("/t/"+name, 1)
	}

	en, err := filesystem.NewEnumerator(mock, nil).Enumerate("/t")
	g.Expect(err).ShouldNot(HaveOccurred())

	scanner := en.Scan(2)
	file, ok := scanner.Next()
	g.Expect(ok).To(BeTrue())
	g.Expect(file.RelativePath).To(Equal("c"))
	g.Expect(scanner.Index()).To(Equal(2))

	file, ok = scanner.Next()
	g.Expect(ok).To(BeTrue())
	g.Expect(file.RelativePath).To(Equal("d"))

	_, ok = scanner.Next()
	g.Expect(ok).To(BeFalse())

	_, ok = en.Scan(10).Next()
	g.Expect(ok).To(BeFalse())
}

func defaultFilter(t *testing.T) *filesystem.DenyFilter {
	t.Helper()

	filter, err := filesystem.NewDenyFilter()
	if err != nil {
		t.Fatal(err)
	}

	return filter
}

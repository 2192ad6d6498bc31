//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package filesystem_test

import (
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/migrate-verify/pkg/filesystem"
)

func TestDenyFilterExcludes(t *testing.T) {
	t.Parallel()

	filter, err := filesystem.NewDenyFilter("**/*.tmp")
	NewWithT(t).Expect(err).ShouldNot(HaveOccurred())

	tests := []struct {
		name     string
		path     string
		isDir    bool
		excluded bool
	}{
		{"regular file kept", "photos/img.jpg", false, false},
		{"ds store at root", ".DS_Store", false, true},
		{"ds store nested", "a/b/.DS_Store", false, true},
		{"case insensitive", "a/THUMBS.DB", false, true},
		{"resource fork", "docs/._report.pdf", false, true},
		{"spotlight dir pruned", ".Spotlight-V100", true, true},
		{"nested trash dir pruned", "vol/.Trashes", true, true},
		{"recycle bin", "$RECYCLE.BIN", true, true},
		{"ordinary dir kept", "photos", true, false},
		{"operator pattern", "cache/x.tmp", false, true},
		{"operator pattern miss", "cache/x.tmpl", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(filter.Excludes(tt.path, tt.isDir)).To(Equal(tt.excluded),
				"Excludes(%q, %v)", tt.path, tt.isDir)
		})
	}
}

func TestDenyFilterNilKeepsEverything(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var filter *filesystem.DenyFilter
	g.Expect(filter.Excludes(".DS_Store", false)).To(BeFalse())
}

func TestDenyFilterIgnoresBlankPatterns(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	filter, err := filesystem.NewDenyFilter("  ", "")
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(filter.Patterns()).To(HaveLen(len(filesystem.DefaultDenyPatterns())))
}

func TestDenyFilterRejectsMalformedPattern(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	filter, err := filesystem.NewDenyFilter("**/*.tmp", "[invalid")
	g.Expect(err).To(MatchError(doublestar.ErrBadPattern))
	g.Expect(err.Error()).To(ContainSubstring("[invalid"))
	g.Expect(filter).To(BeNil())

	g.Expect(filesystem.ValidatePattern("cache/**")).To(Succeed())
}

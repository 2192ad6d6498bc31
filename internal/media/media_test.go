//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package media_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/joe/migrate-verify/internal/media"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected media.Kind
		wantErr  bool
	}{
		{"auto", media.Auto, false},
		{"SSD", media.SSD, false},
		{"nvme", media.SSD, false},
		{"hdd", media.HDD, false},
		{"Rotational", media.HDD, false},
		{"tape", media.Auto, true},
	}

	g := NewWithT(t)

	for _, tt := range tests {
		got, err := media.ParseKind(tt.input)
		if tt.wantErr {
			g.Expect(err).To(HaveOccurred(), tt.input)
			continue
		}

		g.Expect(err).ShouldNot(HaveOccurred(), tt.input)
		g.Expect(got).To(Equal(tt.expected), tt.input)
	}
}

func TestWorkers(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(media.Workers(media.SSD)).To(Equal(8))
	g.Expect(media.Workers(media.HDD)).To(Equal(3))
	g.Expect(media.Workers(media.Unknown)).To(Equal(3))
}

// fakeSys builds a sysfs tree with one disk and one partition.
func fakeSys(t *testing.T, diskName, part, flag string) string {
	t.Helper()

	root := t.TempDir()
	diskDir := filepath.Join(root, "devices", "pci0", "block", diskName)
	partDir := filepath.Join(diskDir, part)

	for _, dir := range []string{filepath.Join(diskDir, "queue"), partDir, filepath.Join(root, "class", "block")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.WriteFile(filepath.Join(diskDir, "queue", "rotational"), []byte(flag+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(partDir, filepath.Join(root, "class", "block", part)); err != nil {
		t.Fatal(err)
	}

	return root
}

func TestClassifyReadsParentDiskFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flag     string
		expected media.Kind
	}{
		{"0", media.SSD},
		{"1", media.HDD},
	}

	for _, tt := range tests {
		g := NewWithT(t)

		classifier := &media.Classifier{
			SysRoot: fakeSys(t, "sdb", "sdb1", tt.flag),
			Partitions: func() ([]disk.PartitionStat, error) {
				return []disk.PartitionStat{
					{Device: "/dev/sda2", Mountpoint: "/"},
					{Device: "/dev/sdb1", Mountpoint: "/mnt/old"},
				}, nil
			},
		}

		kind, err := classifier.Classify("/mnt/old/photos")
		g.Expect(err).ShouldNot(HaveOccurred())
		g.Expect(kind).To(Equal(tt.expected))
	}
}

func TestClassifyFallsBackToUnknown(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	classifier := &media.Classifier{
		SysRoot: t.TempDir(),
		Partitions: func() ([]disk.PartitionStat, error) {
			return []disk.PartitionStat{{Device: "tmpfs", Mountpoint: "/"}}, nil
		},
	}

	_, err := classifier.Classify("/data")
	g.Expect(err).To(HaveOccurred())
	g.Expect(classifier.Resolve(media.Auto, "/data")).To(Equal(media.Unknown))
	g.Expect(classifier.Resolve(media.SSD, "/data")).To(Equal(media.SSD))

	classifier.Partitions = func() ([]disk.PartitionStat, error) { return nil, errors.New("no /proc") }
	g.Expect(classifier.Resolve(media.Auto, "/data")).To(Equal(media.Unknown))
}

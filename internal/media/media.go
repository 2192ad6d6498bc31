// Package media classifies the storage under a tree and sizes worker pools.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Exported constants.
const (
	// Auto asks Classify to detect the medium.
	Auto Kind = iota
	// SSD is solid-state storage: no seek penalty, hashing is CPU bound.
	SSD
	// HDD is rotational storage: seek bound, concurrency causes head thrash.
	HDD
	// Unknown means detection failed.
	Unknown
)

// Worker pool sizes per medium.
const (
	SSDWorkers = 8
	HDDWorkers = 3
)

// Exported variables.
var (
	ErrUnknownKind = errors.New("unknown media kind")
)

// Kind is a coarse storage medium classification.
type Kind int

// ParseKind parses a kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "":
		return Auto, nil
	case "ssd", "nvme", "flash":
		return SSD, nil
	case "hdd", "rotational", "spinning":
		return HDD, nil
	case "unknown":
		return Unknown, nil
	default:
		return Auto, fmt.Errorf("%w: %q (valid: auto, ssd, hdd)", ErrUnknownKind, s)
	}
}

func (k Kind) String() string {
	switch k {
	case Auto:
		return "auto"
	case SSD:
		return "ssd"
	case HDD:
		return "hdd"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Workers returns the pool size for k. Anything not known to be solid-state
// gets the rotational size.
func Workers(k Kind) int {
	if k == SSD {
		return SSDWorkers
	}

	return HDDWorkers
}

// Classifier maps a path to the medium backing it.
type Classifier struct {
	// Partitions lists mounted partitions; defaults to gopsutil.
	Partitions func() ([]disk.PartitionStat, error)
	// SysRoot is where sysfs is mounted; defaults to /sys.
	SysRoot string
}

// NewClassifier returns a Classifier for the running host.
func NewClassifier() *Classifier {
	return &Classifier{
		Partitions: func() ([]disk.PartitionStat, error) { return disk.Partitions(true) },
		SysRoot:    "/sys",
	}
}

// Resolve returns override unless it is Auto, in which case it classifies path.
func (c *Classifier) Resolve(override Kind, path string) Kind {
	if override != Auto {
		return override
	}

	kind, err := c.Classify(path)
	if err != nil {
		return Unknown
	}

	return kind
}

// Classify finds the partition mounted at the longest prefix of path and
// reads the kernel's rotational flag for its block device.
func (c *Classifier) Classify(path string) (Kind, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Unknown, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	parts, err := c.Partitions()
	if err != nil {
		return Unknown, fmt.Errorf("failed to list partitions: %w", err)
	}

	part, ok := mountFor(abs, parts)
	if !ok {
		return Unknown, fmt.Errorf("no mount found for %s", abs)
	}

	if !strings.HasPrefix(part.Device, "/dev/") {
		return Unknown, fmt.Errorf("%s is on %s, not a block device", abs, part.Device)
	}

	return c.rotational(filepath.Base(part.Device))
}

// mountFor picks the partition with the longest mountpoint containing path.
func mountFor(path string, parts []disk.PartitionStat) (disk.PartitionStat, bool) {
	var (
		best  disk.PartitionStat
		found bool
	)

	for _, part := range parts {
		mount := part.Mountpoint
		if !within(path, mount) {
			continue
		}
		if !found || len(mount) > len(best.Mountpoint) {
			best, found = part, true
		}
	}

	return best, found
}

func within(path, mount string) bool {
	if mount == "/" {
		return strings.HasPrefix(path, "/")
	}

	return path == mount || strings.HasPrefix(path, mount+string(filepath.Separator))
}

// rotational reads queue/rotational for dev, climbing from a partition
// (sda1, nvme0n1p2) to its parent disk when the partition has no queue.
func (c *Classifier) rotational(dev string) (Kind, error) {
	link := filepath.Join(c.SysRoot, "class", "block", dev)

	dir, err := filepath.EvalSymlinks(link)
	if err != nil {
		dir = link
	}

	for _, candidate := range []string{dir, filepath.Dir(dir)} {
		data, err := os.ReadFile(filepath.Join(candidate, "queue", "rotational")) // #nosec G304 - sysfs
		if err != nil {
			continue
		}

		switch strings.TrimSpace(string(data)) {
		case "0":
			return SSD, nil
		case "1":
			return HDD, nil
		}
	}

	return Unknown, fmt.Errorf("no rotational flag for %s", dev)
}

// Package config handles application configuration and command-line argument parsing.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/dustin/go-humanize"

	"github.com/joe/migrate-verify/internal/compare"
	"github.com/joe/migrate-verify/internal/media"
	"github.com/joe/migrate-verify/internal/progress"
	"github.com/joe/migrate-verify/internal/stopfile"
	"github.com/joe/migrate-verify/pkg/digest"
	"github.com/joe/migrate-verify/pkg/filesystem"
)

// Exported constants.
const (
	// ProgramName is used in usage text and manifest headers.
	ProgramName = "migrate-verify"
	// ProgramVersion is reported by --version.
	ProgramVersion = "1.0.0"
	// DefaultStateDir holds manifests and the stop file unless overridden.
	DefaultStateDir = ".migrate-verify"
	// SourceManifestName and DestManifestName are the default manifest files.
	SourceManifestName = "source.manifest"
	DestManifestName   = "dest.manifest"
	// DefaultDetailLimit caps rows in detail listings.
	DefaultDetailLimit = 50
)

// Exported variables.
var (
	ErrUsage     = errors.New("usage error")
	ErrHelpShown = errors.New("help or version shown")
)

// ByteSize is a size flag accepting human units such as "10MB" or "1GiB".
type ByteSize int64

// ParseByteSize parses a size with an optional unit (case-insensitive).
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	return ByteSize(n), nil //nolint:gosec // sizes beyond int64 are not meaningful here
}

// String returns the size in IEC units.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(max(b, 0)))
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (b *ByteSize) UnmarshalText(text []byte) error {
	parsed, err := ParseByteSize(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// HashCmd hashes one or both trees into their manifests, resuming where a
// previous run stopped.
type HashCmd struct {
	Source         string           `arg:"-s,--source" help:"Source tree root"`
	Dest           string           `arg:"-d,--dest" help:"Destination tree root"`
	StateDir       string           `arg:"--state-dir" help:"Directory for manifests and the stop file" default:".migrate-verify"`
	SourceManifest string           `arg:"--source-manifest" help:"Source manifest path (default: STATE-DIR/source.manifest)"`
	DestManifest   string           `arg:"--dest-manifest" help:"Destination manifest path (default: STATE-DIR/dest.manifest)"`
	Algorithm      digest.Algorithm `arg:"-a,--algorithm" help:"Digest for new manifests: sha256|blake3 (existing manifests keep theirs)"`
	Media          media.Kind       `arg:"--media" help:"Storage medium: auto|ssd|hdd (sizes the worker pool)" default:"auto"`
	Workers        int              `arg:"-w,--workers" help:"Worker count override (0 = by medium)"`
	Exclude        []string         `arg:"--exclude,separate" help:"Extra glob to skip, relative to the root (repeatable)"`
	StopFile       string           `arg:"--stop-file" help:"Stop gracefully when this file exists (default: STATE-DIR/STOP)"`
	Interval       time.Duration    `arg:"--interval" help:"Progress polling interval" default:"5s"`
	Plain          bool             `arg:"--plain" help:"Print progress lines instead of the full-screen display"`
}

// CompareCmd reconciles two complete manifests.
type CompareCmd struct {
	SourceManifest  string                `arg:"positional,required" placeholder:"SOURCE_MANIFEST"`
	DestManifest    string                `arg:"positional,required" placeholder:"DEST_MANIFEST"`
	SourceRoots     []compare.RootMapping `arg:"--source-root,separate" help:"Source root to strip, as ALIAS or ALIAS=CANONICAL (repeatable; default: the root recorded in the manifest)"`
	DestRoots       []compare.RootMapping `arg:"--dest-root,separate" help:"Destination root to strip, as ALIAS or ALIAS=CANONICAL (repeatable; default: the root recorded in the manifest)"`
	Details         bool                  `arg:"--details" help:"List missing, extra and corrupted paths"`
	Limit           int                   `arg:"--limit" help:"Maximum rows per detail listing (0 = all)" default:"50"`
	AllowIncomplete bool                  `arg:"--allow-incomplete" help:"Compare manifests without a completion marker"`
}

// DupesCmd reports content stored more than once in one manifest.
type DupesCmd struct {
	Manifest string   `arg:"positional,required" placeholder:"MANIFEST"`
	MinSize  ByteSize `arg:"--min-size" help:"Ignore files smaller than this (e.g. 1MB, 4KiB)"`
	Details  bool     `arg:"--details" help:"List every path of each duplicate set"`
	Limit    int      `arg:"--limit" help:"Maximum sets listed (0 = all)" default:"50"`
}

// StatusCmd shows durable progress of manifests without touching them.
type StatusCmd struct {
	Manifests []string `arg:"positional" placeholder:"MANIFEST"`
	StateDir  string   `arg:"--state-dir" help:"Directory whose default manifests are shown when none are given" default:".migrate-verify"`
}

// Config holds the application configuration
type Config struct {
	Hash    *HashCmd    `arg:"subcommand:hash" help:"Hash source and/or destination trees into manifests (resumable)"`
	Compare *CompareCmd `arg:"subcommand:compare" help:"Compare a source manifest with a destination manifest"`
	Dupes   *DupesCmd   `arg:"subcommand:dupes" help:"Report duplicate content within one manifest"`
	Status  *StatusCmd  `arg:"subcommand:status" help:"Show progress recorded in manifests"`

	LogPath string `arg:"--log,env:MIGRATE_VERIFY_LOG" help:"Append a session log to this file"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Resumable content verification for large file migrations"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return ProgramName + " " + ProgramVersion
}

// ParseFlags parses os.Args. Help and version are written to stdout and
// reported as ErrHelpShown; usage problems are written to stderr and
// reported as ErrUsage.
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:], os.Stdout, os.Stderr)
}

// Parse parses args (without the program name).
func Parse(args []string, stdout, stderr io.Writer) (*Config, error) {
	cfg := &Config{}

	parser, err := arg.NewParser(arg.Config{Program: ProgramName}, cfg)
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}

	err = parser.Parse(args)

	switch {
	case errors.Is(err, arg.ErrHelp):
		_ = parser.WriteHelpForSubcommand(stdout, parser.SubcommandNames()...)
		return nil, ErrHelpShown
	case errors.Is(err, arg.ErrVersion):
		_, _ = fmt.Fprintln(stdout, cfg.Version())
		return nil, ErrHelpShown
	case err != nil:
		_ = parser.WriteUsageForSubcommand(stderr, parser.SubcommandNames()...)
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}

	processed, err := PostProcessConfig(cfg)
	if err != nil {
		_ = parser.WriteUsageForSubcommand(stderr, parser.SubcommandNames()...)
		return nil, err
	}

	return processed, nil
}

// PostProcessConfig applies defaults that depend on other flags and
// validates the chosen subcommand.
func PostProcessConfig(cfg *Config) (*Config, error) {
	switch {
	case cfg.Hash != nil:
		return cfg, cfg.Hash.postProcess()
	case cfg.Compare != nil:
		return cfg, cfg.Compare.validate()
	case cfg.Dupes != nil:
		return cfg, cfg.Dupes.validate()
	case cfg.Status != nil:
		cfg.Status.postProcess()
		return cfg, nil
	default:
		return nil, fmt.Errorf("%w: a subcommand is required (hash, compare, dupes, status)", ErrUsage)
	}
}

// postProcess fills in manifest and stop-file defaults and creates the
// state directory. Roots are not checked here: an unreadable root fails only
// its own pipeline.
func (h *HashCmd) postProcess() error {
	if h.Source == "" && h.Dest == "" {
		return fmt.Errorf("%w: at least one of --source and --dest is required", ErrUsage)
	}

	if h.Workers < 0 {
		return fmt.Errorf("%w: --workers must not be negative", ErrUsage)
	}

	for _, pattern := range h.Exclude {
		if err := filesystem.ValidatePattern(strings.TrimSpace(pattern)); err != nil {
			return fmt.Errorf("%w: %w", ErrUsage, err)
		}
	}

	if h.Interval <= 0 {
		h.Interval = progress.DefaultInterval
	}

	if h.StateDir == "" {
		h.StateDir = DefaultStateDir
	}

	if h.SourceManifest == "" {
		h.SourceManifest = filepath.Join(h.StateDir, SourceManifestName)
	}

	if h.DestManifest == "" {
		h.DestManifest = filepath.Join(h.StateDir, DestManifestName)
	}

	if h.Source != "" && h.Dest != "" && filepath.Clean(h.SourceManifest) == filepath.Clean(h.DestManifest) {
		return fmt.Errorf("%w: source and destination cannot share a manifest", ErrUsage)
	}

	if h.StopFile == "" {
		h.StopFile = filepath.Join(h.StateDir, stopfile.DefaultName)
	}

	for _, dir := range []string{h.StateDir, filepath.Dir(h.SourceManifest), filepath.Dir(h.DestManifest)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("cannot create state directory %s: %w", dir, err)
		}
	}

	return nil
}

func (c *CompareCmd) validate() error {
	if c.Limit < 0 {
		c.Limit = DefaultDetailLimit
	}

	if err := ValidateFile("source manifest", c.SourceManifest); err != nil {
		return err
	}

	return ValidateFile("destination manifest", c.DestManifest)
}

func (d *DupesCmd) validate() error {
	if d.Limit < 0 {
		d.Limit = DefaultDetailLimit
	}

	return ValidateFile("manifest", d.Manifest)
}

func (s *StatusCmd) postProcess() {
	if len(s.Manifests) > 0 {
		return
	}

	if s.StateDir == "" {
		s.StateDir = DefaultStateDir
	}

	s.Manifests = []string{
		filepath.Join(s.StateDir, SourceManifestName),
		filepath.Join(s.StateDir, DestManifestName),
	}
}

// ValidateFile checks that path names an existing regular file.
func ValidateFile(what, path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s does not exist: %s", ErrUsage, what, path)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", what, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory: %s", ErrUsage, what, path)
	}

	return nil
}

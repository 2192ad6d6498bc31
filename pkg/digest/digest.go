// Package digest computes content digests of files for manifest records.
//
// Two interchangeable algorithms are supported. The algorithm is fixed when a
// manifest is created and recorded in its header, so every later run against
// that manifest hashes with the same one.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"lukechampine.com/blake3"
)

// Exported constants.
const (
	// SHA256 is the default algorithm (64 hex chars).
	SHA256 Algorithm = iota + 1
	// BLAKE3 is the fast alternative (256-bit output, 64 hex chars).
	BLAKE3
)

// Exported variables.
var (
	ErrDigest           = errors.New("digest failed")
	ErrUnknownAlgorithm = errors.New("unknown digest algorithm")
)

// Algorithm identifies a content hash algorithm.
type Algorithm int

// ParseAlgorithm parses an algorithm name (case-insensitive).
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sha256", "sha-256":
		return SHA256, nil
	case "blake3", "b3":
		return BLAKE3, nil
	default:
		return 0, fmt.Errorf("%w: %q (valid: sha256, blake3)", ErrUnknownAlgorithm, s)
	}
}

// String returns the name written to manifest headers.
func (a Algorithm) String() string {
	switch a {
	case SHA256:
		return "sha256"
	case BLAKE3:
		return "blake3"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Valid reports whether a names a supported algorithm.
func (a Algorithm) Valid() bool {
	return a == SHA256 || a == BLAKE3
}

// HexLen is the length of a hex digest produced by a.
func (a Algorithm) HexLen() int {
	return hex.EncodedLen(a.size())
}

func (a Algorithm) size() int {
	return sha256.Size // both produce 32 bytes
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(a.size(), nil), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int(a))
	}
}

// Provider computes digests of whole files with one algorithm.
type Provider interface {
	Algorithm() Algorithm
	Digest(ctx context.Context, path string) (string, int64, error)
}

// FileProvider hashes files on the local filesystem.
type FileProvider struct {
	algo Algorithm
}

// NewProvider returns a FileProvider for algo.
func NewProvider(algo Algorithm) (*FileProvider, error) {
	if !algo.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int(algo))
	}

	return &FileProvider{algo: algo}, nil
}

// Algorithm returns the provider's algorithm.
func (p *FileProvider) Algorithm() Algorithm {
	return p.algo
}

// Digest hashes the file at path and returns the hex digest and the number
// of bytes read. An empty file is hashed like any other.
//
// Failures to open or read are wrapped with ErrDigest. Cancellation while
// reading returns the context error unwrapped so callers can tell an aborted
// hash from an unreadable file.
func (p *FileProvider) Digest(ctx context.Context, path string) (string, int64, error) {
	file, err := os.Open(path) // #nosec G304 - path comes from enumeration
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrDigest, err)
	}

	defer func() {
		_ = file.Close()
	}()

	return p.DigestReader(ctx, file)
}

// DigestReader hashes everything read from r.
func (p *FileProvider) DigestReader(ctx context.Context, r io.Reader) (string, int64, error) {
	h, err := p.algo.newHash()
	if err != nil {
		return "", 0, err
	}

	n, err := io.Copy(h, &contextReader{ctx: ctx, r: r})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", n, ctxErr
		}

		return "", n, fmt.Errorf("%w: read: %w", ErrDigest, err)
	}

	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Bytes hashes an in-memory buffer.
func Bytes(algo Algorithm, data []byte) (string, error) {
	h, err := algo.newHash()
	if err != nil {
		return "", err
	}

	_, _ = h.Write(data)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// contextReader stops a copy loop once ctx is done.
type contextReader struct {
	ctx context.Context //nolint:containedctx // scoped to a single io.Copy
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}

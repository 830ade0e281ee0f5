// Package gateways provides adapters between the provisioning domain and
// the outside world: the network, the filesystem, and the shell.
package gateways

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opencontainers/go-digest"
)

// ErrDigestMismatch is returned when a file's computed digest does not
// equal the pinned value. Callers treat this as fail-closed: the archive
// must not be extracted or executed.
var ErrDigestMismatch = errors.New("digest mismatch")

// DigestVerifier verifies file contents against pinned SHA-256 digests
type DigestVerifier struct{}

// NewDigestVerifier creates a new digest verifier
func NewDigestVerifier() *DigestVerifier {
	return &DigestVerifier{}
}

// VerifyFile checks that the file at filePath has the expected digest.
// The expected value may be a bare hex string or the canonical
// "sha256:<hex>" form; both are normalized before comparison.
func (v *DigestVerifier) VerifyFile(filePath, expected string) (digest.Digest, error) {
	want, err := normalizeDigest(expected)
	if err != nil {
		return "", err
	}

	actual, err := v.CalculateFile(filePath)
	if err != nil {
		return "", err
	}

	if actual != want {
		return "", fmt.Errorf("%w: expected %s, got %s", ErrDigestMismatch, want, actual)
	}

	return actual, nil
}

// CalculateFile computes the SHA-256 digest of a file
func (v *DigestVerifier) CalculateFile(filePath string) (digest.Digest, error) {
	//nolint:gosec // G304: file path is the download destination under the workspace
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return v.Calculate(f)
}

// Calculate computes the SHA-256 digest of a reader's contents
func (v *DigestVerifier) Calculate(r io.Reader) (digest.Digest, error) {
	d, err := digest.SHA256.FromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to hash contents: %w", err)
	}
	return d, nil
}

// normalizeDigest converts a pinned digest string into canonical form
func normalizeDigest(s string) (digest.Digest, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("no digest pinned")
	}

	if !strings.Contains(s, ":") {
		s = string(digest.SHA256) + ":" + s
	}

	d, err := digest.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid pinned digest %q: %w", s, err)
	}
	if d.Algorithm() != digest.SHA256 {
		return "", fmt.Errorf("unsupported digest algorithm %s, only sha256 is accepted", d.Algorithm())
	}

	return d, nil
}

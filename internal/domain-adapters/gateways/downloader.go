package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ochairo/cauldron/internal/domain/entities"
)

// SignatureVerifier verifies a detached PGP signature over a signed file
type SignatureVerifier interface {
	VerifyDetached(signedPath, signaturePath, keyringPath string) error
}

// Downloader acquires versioned tool sources: it fetches archives over
// HTTP with bounded retry, gates extraction on the pinned digest, and
// extracts verified archives with the top-level path component stripped.
type Downloader struct {
	httpClient  *http.Client
	verifier    *DigestVerifier
	sigVerifier SignatureVerifier
	maxRetries  uint64
}

// NewDownloader creates a new downloader. The signature verifier may be
// nil; detached signature checks then require no keyring and are skipped.
func NewDownloader(verifier *DigestVerifier, sigVerifier SignatureVerifier) *Downloader {
	return &Downloader{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for large downloads
		},
		verifier:    verifier,
		sigVerifier: sigVerifier,
		maxRetries:  3,
	}
}

// AcquireSource downloads the tool's source archive, verifies it against
// the pinned sha256 digest, and extracts it into the workspace source
// directory with the archive's top-level directory stripped.
//
// The digest gate is fail-closed: on mismatch nothing is extracted and
// the source directory is left untouched. When the recipe pins a detached
// signature, signature verification also runs before extraction.
func (d *Downloader) AcquireSource(ctx context.Context, tool *entities.ToolSource, workspace, assetDir string) (*entities.Artifact, error) {
	url := ResolveURL(tool.URL, tool.Version)

	archiveDir := filepath.Join(workspace, "archives")
	if err := os.MkdirAll(archiveDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	archivePath := filepath.Join(archiveDir, path.Base(url))
	if err := d.FetchFile(ctx, url, archivePath); err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	// The gate: extraction must never happen unless the digest matches.
	dgst, err := d.verifier.VerifyFile(archivePath, tool.SHA256)
	if err != nil {
		return nil, fmt.Errorf("archive verification failed: %w", err)
	}

	if tool.Signature.URL != "" {
		if err := d.verifySignature(ctx, tool, archivePath, assetDir); err != nil {
			return nil, fmt.Errorf("signature verification failed: %w", err)
		}
	}

	// The workspace persists across runs; a stale tree from a previous
	// version must not merge into this one.
	sourceDir := filepath.Join(workspace, "src", tool.Name)
	if err := os.RemoveAll(sourceDir); err != nil {
		return nil, fmt.Errorf("failed to clear source directory: %w", err)
	}
	if err := extractTarGz(archivePath, sourceDir, 1); err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	return &entities.Artifact{
		Name:      tool.Name,
		Version:   tool.Version,
		URL:       url,
		Path:      archivePath,
		SourceDir: sourceDir,
		Digest:    dgst.String(),
	}, nil
}

// FetchFile downloads a URL to dest with bounded exponential-backoff
// retry around transient network failures. Client errors (HTTP 4xx) are
// not retried. The file appears at dest only after a complete download.
func (d *Downloader) FetchFile(ctx context.Context, url, dest string) error {
	partial := dest + ".partial"

	operation := func() error {
		return d.fetchOnce(ctx, url, partial)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		//nolint:errcheck // Best-effort cleanup of the partial download
		os.Remove(partial)
		return err
	}

	return os.Rename(partial, dest)
}

// fetchOnce performs a single download attempt
func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "cauldron/1.0")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	//nolint:gosec // G304: dest is the download destination under the workspace
	out, err := os.Create(dest)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create file: %w", err))
	}
	//nolint:errcheck // Defer close on file being written
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Downloaded %s (%d bytes)\n", path.Base(dest), written)
	return nil
}

// verifySignature fetches the detached signature and checks it against
// the recipe's pinned keyring.
func (d *Downloader) verifySignature(ctx context.Context, tool *entities.ToolSource, archivePath, assetDir string) error {
	if d.sigVerifier == nil {
		return fmt.Errorf("recipe pins a signature but no signature verifier is configured")
	}
	if tool.Signature.KeyPath == "" {
		return fmt.Errorf("recipe pins a signature but no keyring")
	}

	sigURL := ResolveURL(tool.Signature.URL, tool.Version)
	sigPath := archivePath + ".sig"
	if err := d.FetchFile(ctx, sigURL, sigPath); err != nil {
		return fmt.Errorf("signature download failed: %w", err)
	}

	keyringPath := filepath.Join(assetDir, tool.Signature.KeyPath)
	return d.sigVerifier.VerifyDetached(archivePath, sigPath, keyringPath)
}

// ResolveURL performs template substitution on a download URL
func ResolveURL(template, version string) string {
	return strings.ReplaceAll(template, "{version}", version)
}

// extractTarGz extracts a .tar.gz file into destDir, stripping the given
// number of leading path components from every entry.
func extractTarGz(tarPath, destDir string, strip int) error {
	//nolint:gosec // G304: tarPath is the verified archive under the workspace
	file, err := os.Open(tarPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.gz: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	//nolint:errcheck // Defer close on gzip reader
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Collect symlinks for a second pass so link targets exist by the
	// time the links are created
	type symlinkInfo struct {
		target   string
		linkname string
	}
	var symlinks []symlinkInfo

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break // End of archive
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		name, ok := stripComponents(header.Name, strip)
		if !ok {
			// Entry consumed entirely by stripping (e.g., the top-level directory itself)
			continue
		}

		//nolint:gosec // G305: Path traversal validated by HasPrefix check below
		target := filepath.Join(destDir, name)

		// Ensure target stays within destDir
		if !strings.HasPrefix(filepath.Clean(target), filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("invalid file path in archive: %s", header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
				return fmt.Errorf("failed to create parent directory: %w", err)
			}

			//nolint:gosec // G115: Integer overflow from tar header mode is acceptable
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_RDWR|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("failed to create file: %w", err)
			}

			// Size limit guards against decompression bombs
			if _, err := io.Copy(outFile, io.LimitReader(tr, 1<<30)); err != nil {
				_ = outFile.Close()
				return fmt.Errorf("failed to write file: %w", err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("failed to close file: %w", err)
			}

		case tar.TypeSymlink:
			symlinks = append(symlinks, symlinkInfo{
				target:   target,
				linkname: header.Linkname,
			})

		default:
			fmt.Fprintf(os.Stderr, "Warning: ignoring unsupported file type %c: %s\n", header.Typeflag, header.Name)
		}
	}

	for _, link := range symlinks {
		if err := os.MkdirAll(filepath.Dir(link.target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for symlink: %w", err)
		}
		// May still fail if the target is absent; some tarballs ship broken symlinks
		if err := os.Symlink(link.linkname, link.target); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create symlink %s -> %s: %v\n", link.target, link.linkname, err)
		}
	}

	fmt.Fprintf(os.Stderr, "Extracted to %s\n", destDir)
	return nil
}

// stripComponents removes the leading n path components from a tar entry
// name. Returns false when nothing remains after stripping.
func stripComponents(name string, n int) (string, bool) {
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if clean == "." || clean == "/" {
		return "", false
	}

	parts := strings.Split(clean, "/")
	if len(parts) <= n {
		return "", false
	}
	return path.Join(parts[n:]...), true
}

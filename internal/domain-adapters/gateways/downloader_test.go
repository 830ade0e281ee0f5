package gateways

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name     string
		template string
		version  string
		want     string
	}{
		{
			name:     "cmake release URL",
			template: "https://github.com/Kitware/CMake/releases/download/v{version}/cmake-{version}.tar.gz",
			version:  "3.27.9",
			want:     "https://github.com/Kitware/CMake/releases/download/v3.27.9/cmake-3.27.9.tar.gz",
		},
		{
			name:     "no placeholder",
			template: "https://sh.rustup.rs",
			version:  "1.0.0",
			want:     "https://sh.rustup.rs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveURL(tt.template, tt.version)
			if got != tt.want {
				t.Errorf("ResolveURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStripComponents(t *testing.T) {
	tests := []struct {
		name   string
		entry  string
		strip  int
		want   string
		wantOK bool
	}{
		{name: "file under top dir", entry: "cmake-3.27.9/CMakeLists.txt", strip: 1, want: "CMakeLists.txt", wantOK: true},
		{name: "nested file", entry: "cmake-3.27.9/Source/main.c", strip: 1, want: "Source/main.c", wantOK: true},
		{name: "top dir itself", entry: "cmake-3.27.9/", strip: 1, want: "", wantOK: false},
		{name: "dot prefix", entry: "./cmake-3.27.9/README", strip: 1, want: "README", wantOK: true},
		{name: "no strip", entry: "a/b", strip: 0, want: "a/b", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stripComponents(tt.entry, tt.strip)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("stripComponents(%q, %d) = (%q, %v), want (%q, %v)",
					tt.entry, tt.strip, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// makeSourceArchive builds a tar.gz with a top-level directory, the way
// upstream source tarballs are laid out, and returns the bytes plus the
// hex SHA-256.
func makeSourceArchive(t *testing.T) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	writeEntry := func(hdr *tar.Header, body []byte) {
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		if body != nil {
			if _, err := tw.Write(body); err != nil {
				t.Fatalf("Failed to write tar body: %v", err)
			}
		}
	}

	writeEntry(&tar.Header{Name: "cmake-3.27.9/", Typeflag: tar.TypeDir, Mode: 0755}, nil)
	writeEntry(&tar.Header{Name: "cmake-3.27.9/CMakeLists.txt", Typeflag: tar.TypeReg, Mode: 0644, Size: 20}, []byte("project(CMake C++)\n\n"))
	writeEntry(&tar.Header{Name: "cmake-3.27.9/Source/", Typeflag: tar.TypeDir, Mode: 0755}, nil)
	writeEntry(&tar.Header{Name: "cmake-3.27.9/Source/main.c", Typeflag: tar.TypeReg, Mode: 0644, Size: 13}, []byte("int main(){}\n"))
	writeEntry(&tar.Header{Name: "cmake-3.27.9/latest", Typeflag: tar.TypeSymlink, Linkname: "CMakeLists.txt", Mode: 0777}, nil)

	if err := tw.Close(); err != nil {
		t.Fatalf("Failed to close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("Failed to close gzip writer: %v", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:])
}

// archiveServer serves the archive bytes at /cmake-3.27.9.tar.gz
func archiveServer(t *testing.T, archive []byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cmake-3.27.9.tar.gz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		//nolint:errcheck // Test server write
		w.Write(archive)
	}))
	t.Cleanup(server.Close)
	return server
}

// A mismatched digest must abort acquisition before extraction: nothing
// may appear in the source directory.
func TestAcquireSource_DigestGate(t *testing.T) {
	archive, _ := makeSourceArchive(t)
	server := archiveServer(t, archive)

	workspace := t.TempDir()
	d := NewDownloader(NewDigestVerifier(), nil)

	tool := &entities.ToolSource{
		Name:    "cmake",
		Version: "3.27.9",
		URL:     server.URL + "/cmake-{version}.tar.gz",
		SHA256:  "0000000000000000000000000000000000000000000000000000000000000000",
	}

	_, err := d.AcquireSource(context.Background(), tool, workspace, "")
	if err == nil {
		t.Fatal("AcquireSource() with wrong digest should return error")
	}
	if !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("AcquireSource() error = %v, want ErrDigestMismatch", err)
	}

	// Fail-closed: the source directory must not have been touched
	sourceDir := filepath.Join(workspace, "src", "cmake")
	if _, err := os.Stat(sourceDir); !os.IsNotExist(err) {
		entries, _ := os.ReadDir(sourceDir)
		t.Errorf("source directory exists after digest mismatch (%d entries)", len(entries))
	}
}

func TestAcquireSource_StripsTopLevelDirectory(t *testing.T) {
	archive, sum := makeSourceArchive(t)
	server := archiveServer(t, archive)

	workspace := t.TempDir()
	d := NewDownloader(NewDigestVerifier(), nil)

	tool := &entities.ToolSource{
		Name:    "cmake",
		Version: "3.27.9",
		URL:     server.URL + "/cmake-{version}.tar.gz",
		SHA256:  sum,
	}

	artifact, err := d.AcquireSource(context.Background(), tool, workspace, "")
	if err != nil {
		t.Fatalf("AcquireSource() error = %v", err)
	}

	if artifact.Digest != "sha256:"+sum {
		t.Errorf("artifact digest = %v, want sha256:%v", artifact.Digest, sum)
	}

	// Files must land directly under the source root, not under cmake-3.27.9/
	content, err := os.ReadFile(filepath.Join(artifact.SourceDir, "CMakeLists.txt"))
	if err != nil {
		t.Fatalf("top-level file not stripped into source root: %v", err)
	}
	if string(content) != "project(CMake C++)\n\n" {
		t.Errorf("extracted content = %q", content)
	}

	if _, err := os.Stat(filepath.Join(artifact.SourceDir, "Source", "main.c")); err != nil {
		t.Errorf("nested file missing after extraction: %v", err)
	}

	if _, err := os.Stat(filepath.Join(artifact.SourceDir, "cmake-3.27.9")); !os.IsNotExist(err) {
		t.Error("top-level directory was not stripped")
	}

	if target, err := os.Readlink(filepath.Join(artifact.SourceDir, "latest")); err != nil || target != "CMakeLists.txt" {
		t.Errorf("symlink = (%q, %v), want (CMakeLists.txt, nil)", target, err)
	}
}

// Identical parameters must produce identical extracted trees
func TestAcquireSource_IdempotentParameters(t *testing.T) {
	archive, sum := makeSourceArchive(t)
	server := archiveServer(t, archive)

	tool := &entities.ToolSource{
		Name:    "cmake",
		Version: "3.27.9",
		URL:     server.URL + "/cmake-{version}.tar.gz",
		SHA256:  sum,
	}

	d := NewDownloader(NewDigestVerifier(), nil)

	trees := make([]map[string]string, 2)
	for i := range trees {
		workspace := t.TempDir()
		artifact, err := d.AcquireSource(context.Background(), tool, workspace, "")
		if err != nil {
			t.Fatalf("AcquireSource() run %d error = %v", i+1, err)
		}
		trees[i] = readTree(t, artifact.SourceDir)
	}

	if len(trees[0]) != len(trees[1]) {
		t.Fatalf("tree sizes differ: %d != %d", len(trees[0]), len(trees[1]))
	}
	for name, content := range trees[0] {
		if trees[1][name] != content {
			t.Errorf("file %s differs between runs", name)
		}
	}
}

// readTree maps relative file paths to their contents
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()

	tree := make(map[string]string)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[rel] = string(content)
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to read tree %s: %v", root, err)
	}
	return tree
}

// The workspace persists across runs; acquiring a different version of
// the same tool must fully replace the source tree, not merge into it.
func TestAcquireSource_ReplacesStaleSourceTree(t *testing.T) {
	makeArchive := func(version string, files map[string]string) ([]byte, string) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		tw := tar.NewWriter(gz)

		top := "cmake-" + version
		if err := tw.WriteHeader(&tar.Header{Name: top + "/", Typeflag: tar.TypeDir, Mode: 0755}); err != nil {
			t.Fatalf("Failed to write tar header: %v", err)
		}
		for name, body := range files {
			if err := tw.WriteHeader(&tar.Header{Name: top + "/" + name, Typeflag: tar.TypeReg, Mode: 0644, Size: int64(len(body))}); err != nil {
				t.Fatalf("Failed to write tar header: %v", err)
			}
			if _, err := tw.Write([]byte(body)); err != nil {
				t.Fatalf("Failed to write tar body: %v", err)
			}
		}

		if err := tw.Close(); err != nil {
			t.Fatalf("Failed to close tar writer: %v", err)
		}
		if err := gz.Close(); err != nil {
			t.Fatalf("Failed to close gzip writer: %v", err)
		}

		sum := sha256.Sum256(buf.Bytes())
		return buf.Bytes(), hex.EncodeToString(sum[:])
	}

	oldArchive, oldSum := makeArchive("3.20.6", map[string]string{"CMakeLists.txt": "old\n", "legacy.c": "int old;\n"})
	newArchive, newSum := makeArchive("3.27.9", map[string]string{"CMakeLists.txt": "new\n"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload []byte
		switch r.URL.Path {
		case "/cmake-3.20.6.tar.gz":
			payload = oldArchive
		case "/cmake-3.27.9.tar.gz":
			payload = newArchive
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		//nolint:errcheck // Test server write
		w.Write(payload)
	}))
	defer server.Close()

	workspace := t.TempDir()
	d := NewDownloader(NewDigestVerifier(), nil)

	tool := &entities.ToolSource{
		Name:    "cmake",
		Version: "3.20.6",
		URL:     server.URL + "/cmake-{version}.tar.gz",
		SHA256:  oldSum,
	}
	if _, err := d.AcquireSource(context.Background(), tool, workspace, ""); err != nil {
		t.Fatalf("AcquireSource() old version error = %v", err)
	}

	tool.Version = "3.27.9"
	tool.SHA256 = newSum
	artifact, err := d.AcquireSource(context.Background(), tool, workspace, "")
	if err != nil {
		t.Fatalf("AcquireSource() new version error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(artifact.SourceDir, "legacy.c")); !os.IsNotExist(err) {
		t.Error("stale file from the previous version survived in the source tree")
	}

	content, err := os.ReadFile(filepath.Join(artifact.SourceDir, "CMakeLists.txt"))
	if err != nil || string(content) != "new\n" {
		t.Errorf("CMakeLists.txt = (%q, %v), want (new, nil)", content, err)
	}
}

func TestFetchFile_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		//nolint:errcheck // Test server write
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	d := NewDownloader(NewDigestVerifier(), nil)
	dest := filepath.Join(t.TempDir(), "payload.bin")

	if err := d.FetchFile(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("FetchFile() error = %v", err)
	}

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	content, err := os.ReadFile(dest)
	if err != nil || string(content) != "payload" {
		t.Errorf("downloaded content = (%q, %v), want (payload, nil)", content, err)
	}
}

func TestFetchFile_NoRetryOnClientError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	d := NewDownloader(NewDigestVerifier(), nil)
	dest := filepath.Join(t.TempDir(), "payload.bin")

	if err := d.FetchFile(context.Background(), server.URL, dest); err == nil {
		t.Fatal("FetchFile() should fail on HTTP 404")
	}

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (client errors are not retried)", attempts)
	}

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("destination file exists after failed download")
	}
}

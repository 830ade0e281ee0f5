package gateways

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// githubAPIStub serves the two endpoints the fetcher uses
func githubAPIStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/Kitware/CMake/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"tag_name": "v3.28.1"}`)
	})
	mux.HandleFunc("/repos/Kitware/CMake/tags", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[{"name": "v3.29.0-rc1"}, {"name": "v3.28.1"}, {"name": "v3.28.0"}]`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestVersionFetcher_FetchLatestVersion(t *testing.T) {
	server := githubAPIStub(t)
	vf := NewVersionFetcherWithBase(server.URL)

	tests := []struct {
		name    string
		cfg     entities.VersionConfig
		want    string
		wantErr bool
	}{
		{
			name: "github release",
			cfg:  entities.VersionConfig{Source: "github-release:Kitware/CMake"},
			want: "3.28.1",
		},
		{
			name: "github tag skips excluded prereleases",
			cfg: entities.VersionConfig{
				Source:          "github-tag:Kitware/CMake",
				ExcludePatterns: "(rc|alpha|beta)",
			},
			want: "3.28.1",
		},
		{
			name: "static version",
			cfg:  entities.VersionConfig{Source: "static:3.27.9"},
			want: "3.27.9",
		},
		{
			name: "extract pattern",
			cfg: entities.VersionConfig{
				Source:         "github-release:Kitware/CMake",
				ExtractPattern: `v(\d+\.\d+)\.\d+`,
			},
			want: "3.28",
		},
		{
			name:    "empty source",
			cfg:     entities.VersionConfig{},
			wantErr: true,
		},
		{
			name:    "unsupported source",
			cfg:     entities.VersionConfig{Source: "svn:example.org/repo"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vf.FetchLatestVersion(context.Background(), &tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FetchLatestVersion() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("FetchLatestVersion() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVersionFetcher_ExcludedVersionFails(t *testing.T) {
	vf := NewVersionFetcher()

	_, err := vf.FetchLatestVersion(context.Background(), &entities.VersionConfig{
		Source:          "static:3.29.0-rc1",
		ExcludePatterns: "(rc|alpha|beta)",
	})
	if err == nil {
		t.Fatal("FetchLatestVersion() should reject an excluded version")
	}
}

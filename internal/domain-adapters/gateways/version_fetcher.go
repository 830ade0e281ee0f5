package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ochairo/cauldron/internal/domain/entities"
)

// VersionFetcher checks upstream sources for the latest released version
// of a pinned tool. Informational only: provisioning always uses the
// recipe's pinned version.
type VersionFetcher struct {
	httpClient *http.Client
	apiBase    string
	maxRetries uint64
}

// NewVersionFetcher creates a new version fetcher
func NewVersionFetcher() *VersionFetcher {
	return &VersionFetcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // Reasonable timeout for version checks
		},
		apiBase:    "https://api.github.com",
		maxRetries: 3,
	}
}

// NewVersionFetcherWithBase creates a fetcher against an alternate API
// base URL (used by tests)
func NewVersionFetcherWithBase(apiBase string) *VersionFetcher {
	vf := NewVersionFetcher()
	vf.apiBase = apiBase
	return vf
}

// FetchLatestVersion fetches the latest version based on version.source
func (vf *VersionFetcher) FetchLatestVersion(ctx context.Context, cfg *entities.VersionConfig) (string, error) {
	source := cfg.Source
	if source == "" {
		return "", fmt.Errorf("version.source not specified")
	}

	var rawVersion string
	var err error

	switch {
	case strings.HasPrefix(source, "github-release:"):
		repo := strings.TrimPrefix(source, "github-release:")
		rawVersion, err = vf.fetchGitHubRelease(ctx, repo)
	case strings.HasPrefix(source, "github-tag:"):
		repo := strings.TrimPrefix(source, "github-tag:")
		rawVersion, err = vf.fetchGitHubTag(ctx, repo, cfg.ExcludePatterns)
	case strings.HasPrefix(source, "static:"):
		rawVersion = strings.TrimPrefix(source, "static:")
	default:
		return "", fmt.Errorf("unsupported version.source format: %s", source)
	}

	if err != nil {
		return "", err
	}

	if cfg.ExtractPattern != "" {
		rawVersion, err = extractVersion(rawVersion, cfg.ExtractPattern)
		if err != nil {
			return "", fmt.Errorf("version extraction failed: %w", err)
		}
	}

	if cfg.ExcludePatterns != "" && matchesExclude(rawVersion, cfg.ExcludePatterns) {
		return "", fmt.Errorf("version %s filtered out by regex: %s", rawVersion, cfg.ExcludePatterns)
	}

	return strings.TrimSpace(strings.TrimPrefix(rawVersion, "v")), nil
}

// fetchGitHubRelease fetches the latest release tag for a repository
func (vf *VersionFetcher) fetchGitHubRelease(ctx context.Context, repo string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", vf.apiBase, repo)

	body, err := vf.getJSON(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release for %s: %w", repo, err)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(body, &release); err != nil {
		return "", fmt.Errorf("failed to parse release response: %w", err)
	}
	if release.TagName == "" {
		return "", fmt.Errorf("no release tag found for %s", repo)
	}

	return release.TagName, nil
}

// fetchGitHubTag fetches the newest tag not excluded by the filter
func (vf *VersionFetcher) fetchGitHubTag(ctx context.Context, repo, excludePatterns string) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/tags?per_page=30", vf.apiBase, repo)

	body, err := vf.getJSON(ctx, url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch tags for %s: %w", repo, err)
	}

	var tags []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &tags); err != nil {
		return "", fmt.Errorf("failed to parse tags response: %w", err)
	}

	for _, tag := range tags {
		if excludePatterns != "" && matchesExclude(tag.Name, excludePatterns) {
			continue
		}
		return tag.Name, nil
	}

	return "", fmt.Errorf("no acceptable tag found for %s", repo)
}

// getJSON performs a GET with bounded retry around transient failures
func (vf *VersionFetcher) getJSON(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "cauldron/1.0")

		resp, err := vf.httpClient.Do(req)
		if err != nil {
			return err
		}
		//nolint:errcheck // Defer close on HTTP response body
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		body, err = io.ReadAll(resp.Body)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), vf.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return body, nil
}

// extractVersion applies an extraction regex with one capture group
func extractVersion(raw, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid extract pattern: %w", err)
	}

	matches := re.FindStringSubmatch(raw)
	if len(matches) < 2 {
		return "", fmt.Errorf("pattern %q did not match %q", pattern, raw)
	}

	return matches[1], nil
}

// matchesExclude reports whether a version matches the exclusion regex
func matchesExclude(version, excludePatterns string) bool {
	re, err := regexp.Compile(excludePatterns)
	if err != nil {
		return false // Invalid patterns exclude nothing
	}
	return re.MatchString(version)
}

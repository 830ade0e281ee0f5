package gateways

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// PackageInstaller installs system packages through the distribution's
// package manager. A single attempt, fatal on failure: the pipeline never
// retries a failed package transaction.
type PackageInstaller struct {
	executor *ScriptExecutor
	timeout  time.Duration
}

// NewPackageInstaller creates a new package installer
func NewPackageInstaller(executor *ScriptExecutor) *PackageInstaller {
	return &PackageInstaller{
		executor: executor,
		timeout:  15 * time.Minute,
	}
}

// InstallPackages installs the given packages non-interactively
func (pi *PackageInstaller) InstallPackages(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}

	return pi.executor.RunChecked(ctx, ExecuteScriptConfig{
		Script: InstallCommand(packages),
		Env: map[string]string{
			"DEBIAN_FRONTEND": "noninteractive",
		},
		Timeout:     pi.timeout,
		Description: fmt.Sprintf("install %d system packages", len(packages)),
	})
}

// InstallCommand builds the package manager invocation for a package set
// (exported for testing)
func InstallCommand(packages []string) string {
	return "apt-get update && apt-get install -y --no-install-recommends " + strings.Join(packages, " ")
}

package gateways

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// ScriptInstaller copies collaborator scripts from the recipe's asset
// directory to their declared targets, marking them executable. The
// scripts themselves are opaque; only their placement is this gateway's
// concern.
type ScriptInstaller struct {
	assetDir string
}

// NewScriptInstaller creates a script installer rooted at the recipe's
// asset directory.
func NewScriptInstaller(assetDir string) *ScriptInstaller {
	return &ScriptInstaller{assetDir: assetDir}
}

// InstallScripts copies each script asset into place
func (si *ScriptInstaller) InstallScripts(_ context.Context, scripts []entities.ScriptAsset) error {
	for _, script := range scripts {
		if err := si.installOne(script); err != nil {
			return fmt.Errorf("failed to install script %s: %w", script.Source, err)
		}
	}
	return nil
}

func (si *ScriptInstaller) installOne(script entities.ScriptAsset) error {
	source := filepath.Join(si.assetDir, script.Source)

	//nolint:gosec // G304: source is a recipe asset path
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(script.Target), 0750); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	// Executable: these are invoked directly as build and entry points
	//nolint:gosec // G302,G304: collaborator scripts must be executable at their target
	out, err := os.OpenFile(script.Target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create target: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy script: %w", err)
	}

	return out.Close()
}

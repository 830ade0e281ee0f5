package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// RustupInstaller installs the Rust toolchain for the unprivileged user:
// the installer runs non-interactively, development components are added,
// and additional tools are installed through cargo. Everything is scoped
// to the user's home directory.
type RustupInstaller struct {
	downloader *Downloader
	verifier   *DigestVerifier
	executor   *ScriptExecutor
	timeout    time.Duration
}

// NewRustupInstaller creates a new toolchain installer
func NewRustupInstaller(downloader *Downloader, verifier *DigestVerifier, executor *ScriptExecutor) *RustupInstaller {
	return &RustupInstaller{
		downloader: downloader,
		verifier:   verifier,
		executor:   executor,
		timeout:    30 * time.Minute,
	}
}

// InstallToolchain downloads and runs the toolchain installer, then adds
// the recipe's components and cargo-installed tools.
//
// The installer download is digest-checked only when the recipe pins an
// installer sha256; otherwise a warning notes the weaker trust boundary.
func (ri *RustupInstaller) InstallToolchain(ctx context.Context, rust *entities.RustToolchain, user *entities.UserConfig, workspace string) error {
	if rust.InstallerURL == "" {
		return fmt.Errorf("toolchain installer URL not specified")
	}

	home := user.Home
	if home == "" {
		home = "/home/" + user.Name
	}

	// World-traversable so the unprivileged user can read the installer
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	installerPath := filepath.Join(workspace, "rustup-init.sh")
	if err := ri.downloader.FetchFile(ctx, rust.InstallerURL, installerPath); err != nil {
		return fmt.Errorf("installer download failed: %w", err)
	}

	if rust.InstallerSHA256 != "" {
		if _, err := ri.verifier.VerifyFile(installerPath, rust.InstallerSHA256); err != nil {
			return fmt.Errorf("installer verification failed: %w", err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "Warning: toolchain installer is not digest-pinned; running it unverified")
	}

	env := ToolchainEnv(home)

	// Every toolchain command runs as the provisioned user so .cargo and
	// .rustup end up owned by them, not by the provisioner.
	if err := ri.executor.RunChecked(ctx, ExecuteScriptConfig{
		Script:      AsUserCommand(user.Name, InstallerCommand(installerPath, rust.Channel, rust.Profile)),
		Env:         env,
		Timeout:     ri.timeout,
		Description: "run toolchain installer",
	}); err != nil {
		return err
	}

	if len(rust.Components) > 0 {
		if err := ri.executor.RunChecked(ctx, ExecuteScriptConfig{
			Script:      AsUserCommand(user.Name, ComponentCommand(home, rust.Components)),
			Env:         env,
			Timeout:     ri.timeout,
			Description: fmt.Sprintf("add toolchain components %s", strings.Join(rust.Components, ", ")),
		}); err != nil {
			return err
		}
	}

	for _, tool := range rust.CargoInstalls {
		if err := ri.executor.RunChecked(ctx, ExecuteScriptConfig{
			Script:      AsUserCommand(user.Name, CargoInstallCommand(home, tool)),
			Env:         env,
			Timeout:     ri.timeout,
			Description: fmt.Sprintf("cargo install %s", tool),
		}); err != nil {
			return err
		}
	}

	return nil
}

// ToolchainEnv returns the environment that scopes the toolchain to the
// user's home directory (exported for testing)
func ToolchainEnv(home string) map[string]string {
	return map[string]string{
		"HOME":        home,
		"CARGO_HOME":  filepath.Join(home, ".cargo"),
		"RUSTUP_HOME": filepath.Join(home, ".rustup"),
	}
}

// InstallerCommand builds the non-interactive installer invocation
// (exported for testing)
func InstallerCommand(installerPath, channel, profile string) string {
	cmd := "sh " + installerPath + " -y --no-modify-path"
	if channel != "" {
		cmd += " --default-toolchain " + channel
	}
	if profile != "" {
		cmd += " --profile " + profile
	}
	return cmd
}

// ComponentCommand builds the component installation invocation
// (exported for testing)
func ComponentCommand(home string, components []string) string {
	return cargoBin(home, "rustup") + " component add " + strings.Join(components, " ")
}

// CargoInstallCommand builds the cargo tool installation invocation
// (exported for testing)
func CargoInstallCommand(home, tool string) string {
	return cargoBin(home, "cargo") + " install " + tool
}

func cargoBin(home, binary string) string {
	return filepath.Join(home, ".cargo", "bin", binary)
}

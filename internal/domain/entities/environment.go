// Package entities defines the core domain types for environment provisioning.
package entities

// Environment represents a toolchain environment recipe from YAML
type Environment struct {
	Name        string
	Description string
	Base        BaseConfig
	Scripts     []ScriptAsset
	Tool        ToolSource
	Version     VersionConfig
	User        UserConfig
	Rust        RustToolchain
	Runtime     RuntimeContract
}

// BaseConfig describes the base layer the environment is provisioned on
type BaseConfig struct {
	Image    string   // Informational: the base image the recipe targets (e.g., ubuntu:22.04)
	Packages []string // System packages installed before anything else
}

// ScriptAsset is a collaborator script copied into the environment.
// The script's internals are opaque; only its invocation contract matters.
type ScriptAsset struct {
	Source string // Path relative to the recipe's asset directory
	Target string // Absolute destination path in the environment
}

// ToolSource describes the versioned tool built from source.
//
// The URL is a template; {version} is substituted before download. The
// SHA256 digest gates extraction: a mismatch aborts provisioning before
// any file is extracted.
type ToolSource struct {
	Name        string
	Version     string
	URL         string
	SHA256      string
	Signature   SignatureConfig
	BuildScript string // Script invoked with the extracted source root as working directory
}

// SignatureConfig optionally pins a detached PGP signature for the tool
// source archive. When KeyPath is set, signature verification runs in
// addition to the digest gate.
type SignatureConfig struct {
	URL     string // Template for the detached signature ({version} substituted)
	KeyPath string // Path to the armored public keyring, relative to the recipe's asset directory
}

// VersionConfig represents upstream version checking configuration
type VersionConfig struct {
	Source          string // e.g., "github-release:owner/repo", "github-tag:owner/repo", "static:3.27"
	ExcludePatterns string // Regex of versions to skip (rc, alpha, beta, etc.)
	ExtractPattern  string // Regex to extract the version from a tag name
}

// UserConfig describes the unprivileged execution identity
type UserConfig struct {
	Name     string
	Home     string
	VCSTrust bool // Trust arbitrary local directories in global git config
}

// RustToolchain describes the secondary toolchain installed for the
// unprivileged user.
type RustToolchain struct {
	InstallerURL    string
	InstallerSHA256 string // Optional; enforced fail-closed when present
	Channel         string
	Profile         string
	Components      []string
	CargoInstalls   []string
}

// RuntimeContract declares what downstream containers observe: the
// process-wide environment, the fixed entrypoint, the mounts the caller
// is expected to provide, and the identity the entrypoint runs as.
type RuntimeContract struct {
	Env        map[string]string
	Entrypoint string
	Mounts     []string
	User       string // Unprivileged user the entrypoint runs as; empty keeps the invoking identity
}

// Package yaml provides YAML-based environment recipe parsing and
// repository implementations.
package yaml

import (
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlEnvironment represents the raw YAML structure
type yamlEnvironment struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description"`
	Base        yamlBase         `yaml:"base"`
	Scripts     []yamlScript     `yaml:"scripts"`
	Tool        yamlTool         `yaml:"tool"`
	Version     yamlVersion      `yaml:"version"`
	User        yamlUser         `yaml:"user"`
	Rust        yamlRust         `yaml:"rust"`
	Runtime     yamlRuntime      `yaml:"runtime"`
}

type yamlBase struct {
	Image    string   `yaml:"image"`
	Packages []string `yaml:"packages"`
}

type yamlScript struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type yamlTool struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	URL         string        `yaml:"url"`
	SHA256      string        `yaml:"sha256"`
	Signature   yamlSignature `yaml:"signature"`
	BuildScript string        `yaml:"build_script"`
}

type yamlSignature struct {
	URL     string `yaml:"url"`
	KeyPath string `yaml:"key_path"`
}

type yamlVersion struct {
	Source          string `yaml:"source"`
	ExcludePatterns string `yaml:"exclude_patterns"`
	ExtractPattern  string `yaml:"extract_pattern"`
}

type yamlUser struct {
	Name     string `yaml:"name"`
	Home     string `yaml:"home"`
	VCSTrust bool   `yaml:"vcs_trust"`
}

type yamlRust struct {
	InstallerURL    string   `yaml:"installer_url"`
	InstallerSHA256 string   `yaml:"installer_sha256"`
	Channel         string   `yaml:"channel"`
	Profile         string   `yaml:"profile"`
	Components      []string `yaml:"components"`
	CargoInstalls   []string `yaml:"cargo_installs"`
}

type yamlRuntime struct {
	Env        map[string]string `yaml:"env"`
	Entrypoint string            `yaml:"entrypoint"`
	Mounts     []string          `yaml:"mounts"`
}

// RecipeParser parses YAML environment recipe files
type RecipeParser struct{}

// NewRecipeParser creates a new YAML parser
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseFile parses a YAML recipe file into an Environment entity
func (p *RecipeParser) ParseFile(filePath string) (*entities.Environment, error) {
	//nolint:gosec // G304: filePath is a recipe path from the repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into an Environment entity
func (p *RecipeParser) Parse(data []byte) (*entities.Environment, error) {
	var raw yamlEnvironment
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	env := &entities.Environment{
		Name:        raw.Name,
		Description: raw.Description,
		Base: entities.BaseConfig{
			Image:    raw.Base.Image,
			Packages: raw.Base.Packages,
		},
		Scripts: convertScripts(raw.Scripts),
		Tool: entities.ToolSource{
			Name:    raw.Tool.Name,
			Version: raw.Tool.Version,
			URL:     raw.Tool.URL,
			SHA256:  raw.Tool.SHA256,
			Signature: entities.SignatureConfig{
				URL:     raw.Tool.Signature.URL,
				KeyPath: raw.Tool.Signature.KeyPath,
			},
			BuildScript: raw.Tool.BuildScript,
		},
		Version: entities.VersionConfig{
			Source:          raw.Version.Source,
			ExcludePatterns: raw.Version.ExcludePatterns,
			ExtractPattern:  raw.Version.ExtractPattern,
		},
		User: entities.UserConfig{
			Name:     raw.User.Name,
			Home:     raw.User.Home,
			VCSTrust: raw.User.VCSTrust,
		},
		Rust: entities.RustToolchain{
			InstallerURL:    raw.Rust.InstallerURL,
			InstallerSHA256: raw.Rust.InstallerSHA256,
			Channel:         raw.Rust.Channel,
			Profile:         raw.Rust.Profile,
			Components:      raw.Rust.Components,
			CargoInstalls:   raw.Rust.CargoInstalls,
		},
		Runtime: entities.RuntimeContract{
			Env:        raw.Runtime.Env,
			Entrypoint: raw.Runtime.Entrypoint,
			Mounts:     raw.Runtime.Mounts,
		},
	}

	if err := Validate(env); err != nil {
		return nil, err
	}

	return env, nil
}

// Validate checks that a recipe has the fields the provision pipeline
// depends on. Called during parsing; also exposed for the validate command.
func Validate(env *entities.Environment) error {
	if env.Name == "" {
		return fmt.Errorf("recipe must have a name")
	}
	if env.Tool.Name != "" {
		if env.Tool.URL == "" {
			return fmt.Errorf("tool %s must have a download url", env.Tool.Name)
		}
		if env.Tool.SHA256 == "" {
			return fmt.Errorf("tool %s must pin a sha256 digest", env.Tool.Name)
		}
		if env.Tool.Version == "" {
			return fmt.Errorf("tool %s must pin a version", env.Tool.Name)
		}
	}
	if env.Runtime.Entrypoint == "" {
		return fmt.Errorf("recipe must declare a runtime entrypoint")
	}
	return nil
}

func convertScripts(scripts []yamlScript) []entities.ScriptAsset {
	converted := make([]entities.ScriptAsset, 0, len(scripts))
	for _, s := range scripts {
		converted = append(converted, entities.ScriptAsset{
			Source: s.Source,
			Target: s.Target,
		})
	}
	return converted
}

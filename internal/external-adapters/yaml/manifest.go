package yaml

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlManifest is the on-disk form of the runtime contract written at the
// end of provisioning and consumed by the enter command at container start.
type yamlManifest struct {
	Environment string            `yaml:"environment"`
	Env         map[string]string `yaml:"env"`
	Entrypoint  string            `yaml:"entrypoint"`
	Mounts      []string          `yaml:"mounts"`
	User        string            `yaml:"user,omitempty"`
}

// ManifestStore reads and writes runtime manifests
type ManifestStore struct{}

// NewManifestStore creates a new manifest store
func NewManifestStore() *ManifestStore {
	return &ManifestStore{}
}

// WriteManifest persists the runtime contract to path, creating parent
// directories as needed.
func (s *ManifestStore) WriteManifest(path, environment string, contract *entities.RuntimeContract) error {
	raw := yamlManifest{
		Environment: environment,
		Env:         contract.Env,
		Entrypoint:  contract.Entrypoint,
		Mounts:      contract.Mounts,
		User:        contract.User,
	}

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return fmt.Errorf("failed to marshal runtime manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	// World-readable: every process in the container may consult the contract
	//nolint:gosec // G306: runtime manifest is intentionally world-readable
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write runtime manifest: %w", err)
	}

	return nil
}

// ReadManifest loads the runtime contract from path
func (s *ManifestStore) ReadManifest(path string) (string, *entities.RuntimeContract, error) {
	//nolint:gosec // G304: manifest path is operator-provided configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read runtime manifest: %w", err)
	}

	var raw yamlManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("failed to parse runtime manifest: %w", err)
	}

	if raw.Entrypoint == "" {
		return "", nil, fmt.Errorf("runtime manifest declares no entrypoint")
	}

	return raw.Environment, &entities.RuntimeContract{
		Env:        raw.Env,
		Entrypoint: raw.Entrypoint,
		Mounts:     raw.Mounts,
		User:       raw.User,
	}, nil
}

// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// PackageInstaller interface for installing system packages
type PackageInstaller interface {
	InstallPackages(ctx context.Context, packages []string) error
}

// ScriptInstaller interface for placing collaborator scripts
type ScriptInstaller interface {
	InstallScripts(ctx context.Context, scripts []entities.ScriptAsset) error
}

// SourceAcquirer interface for verified acquisition of tool sources
type SourceAcquirer interface {
	AcquireSource(ctx context.Context, tool *entities.ToolSource, workspace, assetDir string) (*entities.Artifact, error)
}

// ToolBuilder interface for building the acquired tool from source
type ToolBuilder interface {
	BuildTool(ctx context.Context, tool *entities.ToolSource, artifact *entities.Artifact) error
}

// UserProvisioner interface for creating the unprivileged execution identity
type UserProvisioner interface {
	ProvisionUser(ctx context.Context, user *entities.UserConfig) error
}

// ToolchainInstaller interface for installing the secondary toolchain
type ToolchainInstaller interface {
	InstallToolchain(ctx context.Context, rust *entities.RustToolchain, user *entities.UserConfig, workspace string) error
}

// ManifestWriter interface for persisting the runtime contract
type ManifestWriter interface {
	WriteManifest(path, environment string, contract *entities.RuntimeContract) error
}

// ProvisionOrchestrator drives the provisioning pipeline: an explicit
// ordered list of named steps, stopped at the first failure. There is no
// local recovery or partial-success state; a failed step leaves the
// environment incomplete and the caller restarts from scratch.
type ProvisionOrchestrator struct {
	packages  PackageInstaller
	scripts   ScriptInstaller
	acquirer  SourceAcquirer
	builder   ToolBuilder
	user      UserProvisioner
	toolchain ToolchainInstaller
	manifest  ManifestWriter
	logger    interfaces.Logger

	workspace    string
	assetDir     string
	manifestPath string
}

// ProvisionOrchestratorConfig holds configuration for the orchestrator
type ProvisionOrchestratorConfig struct {
	Workspace    string // Scratch directory for downloads and extracted sources
	AssetDir     string // Directory holding the recipe's script assets and keyrings
	ManifestPath string // Where the runtime manifest is written
	Logger       interfaces.Logger
}

// DefaultManifestPath is where the runtime manifest lands unless overridden
const DefaultManifestPath = "/etc/cauldron/runtime.yml"

// NewProvisionOrchestrator creates a new provision orchestrator
func NewProvisionOrchestrator(
	packages PackageInstaller,
	scripts ScriptInstaller,
	acquirer SourceAcquirer,
	builder ToolBuilder,
	user UserProvisioner,
	toolchain ToolchainInstaller,
	manifest ManifestWriter,
	config ProvisionOrchestratorConfig,
) *ProvisionOrchestrator {
	manifestPath := config.ManifestPath
	if manifestPath == "" {
		manifestPath = DefaultManifestPath
	}

	logger := config.Logger
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &ProvisionOrchestrator{
		packages:     packages,
		scripts:      scripts,
		acquirer:     acquirer,
		builder:      builder,
		user:         user,
		toolchain:    toolchain,
		manifest:     manifest,
		logger:       logger,
		workspace:    config.Workspace,
		assetDir:     config.AssetDir,
		manifestPath: manifestPath,
	}
}

// ProvisionResult contains the result of a provisioning run
type ProvisionResult struct {
	Environment   *entities.Environment
	Artifact      *entities.Artifact
	Steps         []entities.StepResult
	TotalDuration time.Duration
	Success       bool
	FailedStep    string
	Error         error
}

// provisionStep pairs a step name with its execution function
type provisionStep struct {
	name string
	run  func(ctx context.Context) error
}

// Provision executes the pipeline for an environment recipe.
//
// Steps run strictly in order. The first failure stops the pipeline:
// later steps are recorded as skipped and the error names the failing
// step. The returned result always carries the per-step record, on
// failure as well as on success.
func (o *ProvisionOrchestrator) Provision(ctx context.Context, env *entities.Environment) (*ProvisionResult, error) {
	startTime := time.Now()
	result := &ProvisionResult{Environment: env}

	steps := o.steps(env, result)

	for i, step := range steps {
		if result.Error != nil {
			result.Steps = append(result.Steps, entities.StepResult{
				Name:   step.name,
				Status: entities.StepSkipped,
			})
			continue
		}

		o.logger.Info("running step", interfaces.F("step", step.name), interfaces.F("index", i+1), interfaces.F("total", len(steps)))

		stepStart := time.Now()
		err := step.run(ctx)
		record := entities.StepResult{
			Name:     step.name,
			Duration: time.Since(stepStart),
		}

		if err != nil {
			record.Status = entities.StepFailure
			record.Message = err.Error()
			result.FailedStep = step.name
			result.Error = fmt.Errorf("step %s failed: %w", step.name, err)
			o.logger.Error("step failed", interfaces.F("step", step.name), interfaces.F("error", err))
		} else {
			record.Status = entities.StepSuccess
			o.logger.Info("step complete", interfaces.F("step", step.name), interfaces.F("duration", record.Duration))
		}

		result.Steps = append(result.Steps, record)
	}

	result.TotalDuration = time.Since(startTime)
	if result.Error != nil {
		return result, result.Error
	}

	result.Success = true
	return result, nil
}

// StepNames returns the ordered step names the pipeline would run for an
// environment, without executing anything.
func (o *ProvisionOrchestrator) StepNames(env *entities.Environment) []string {
	steps := o.steps(env, &ProvisionResult{})
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.name)
	}
	return names
}

// steps assembles the ordered step list for an environment. Steps whose
// recipe section is absent are omitted rather than no-opped, so the plan
// output reflects what would actually run.
func (o *ProvisionOrchestrator) steps(env *entities.Environment, result *ProvisionResult) []provisionStep {
	var steps []provisionStep

	if len(env.Base.Packages) > 0 {
		steps = append(steps, provisionStep{"install-packages", func(ctx context.Context) error {
			return o.packages.InstallPackages(ctx, env.Base.Packages)
		}})
	}

	if len(env.Scripts) > 0 {
		steps = append(steps, provisionStep{"install-scripts", func(ctx context.Context) error {
			return o.scripts.InstallScripts(ctx, env.Scripts)
		}})
	}

	if env.Tool.Name != "" {
		steps = append(steps, provisionStep{"acquire-tool-source", func(ctx context.Context) error {
			artifact, err := o.acquirer.AcquireSource(ctx, &env.Tool, o.workspace, o.assetDir)
			if err != nil {
				return err
			}
			result.Artifact = artifact
			return nil
		}})

		steps = append(steps, provisionStep{"build-tool", func(ctx context.Context) error {
			return o.builder.BuildTool(ctx, &env.Tool, result.Artifact)
		}})
	}

	if env.User.Name != "" {
		steps = append(steps, provisionStep{"provision-user", func(ctx context.Context) error {
			return o.user.ProvisionUser(ctx, &env.User)
		}})
	}

	if env.Rust.InstallerURL != "" {
		steps = append(steps, provisionStep{"install-rust-toolchain", func(ctx context.Context) error {
			return o.toolchain.InstallToolchain(ctx, &env.Rust, &env.User, o.workspace)
		}})
	}

	steps = append(steps, provisionStep{"declare-runtime-contract", func(_ context.Context) error {
		// The provisioned identity is part of the contract: enter drops
		// to it before executing the entrypoint.
		contract := env.Runtime
		if env.User.Name != "" {
			contract.User = env.User.Name
		}
		return o.manifest.WriteManifest(o.manifestPath, env.Name, &contract)
	}})

	return steps
}

// GetProvisionSummary returns a human-readable summary of the run
func (r *ProvisionResult) GetProvisionSummary() string {
	if !r.Success {
		return fmt.Sprintf("Provisioning failed at step %s: %v", r.FailedStep, r.Error)
	}

	summary := fmt.Sprintf(`Provisioning successful!
Environment: %s
Steps: %d
Total: %v`,
		r.Environment.Name,
		len(r.Steps),
		r.TotalDuration,
	)

	if r.Artifact != nil {
		summary += fmt.Sprintf("\nTool: %s %s (%s)", r.Artifact.Name, r.Artifact.Version, r.Artifact.Digest)
	}

	return summary
}

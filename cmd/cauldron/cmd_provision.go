// Package main provides the cauldron CLI for provisioning reproducible
// toolchain environments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/external-adapters/pgp"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runProvision(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	var (
		recipesDir = fs.String("recipes-dir", "recipes", "Path to recipes directory")
		assetsDir  = fs.String("assets-dir", "", "Directory holding recipe script assets (default: recipes directory)")
		workspace  = fs.String("workspace", defaultWorkspace(), "Scratch directory for downloads and sources")
		manifest   = fs.String("manifest", orchestrators.DefaultManifestPath, "Path for the runtime manifest")
		jsonOutput = fs.String("json-output", "", "Optional JSON file for the per-step report")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron provision <environment> [options]

Provision a toolchain environment from a recipe. Steps run in strict
order and the first failure aborts the run.

Examples:
  cauldron provision awslc-cmake
  cauldron provision awslc-cmake --workspace /tmp/cauldron --manifest /etc/cauldron/runtime.yml

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: environment name is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	name := fs.Arg(0)

	assets := *assetsDir
	if assets == "" {
		assets = *recipesDir
	}

	repo := yaml.NewRecipeRepository(*recipesDir)
	env, err := repo.GetEnvironment(ctx, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	orch := newOrchestrator(assets, *workspace, *manifest)

	fmt.Printf("\nProvisioning %s\n\n", env.Name)

	result, err := orch.Provision(ctx, env)

	for _, step := range result.Steps {
		switch step.Status {
		case entities.StepSuccess:
			fmt.Printf("  ✅ %s (%v)\n", step.Name, step.Duration)
		case entities.StepFailure:
			fmt.Printf("  ❌ %s: %s\n", step.Name, step.Message)
		case entities.StepSkipped:
			fmt.Printf("  ⏭️  %s (skipped)\n", step.Name)
		}
	}

	if *jsonOutput != "" {
		reportData, merr := json.MarshalIndent(result.Steps, "", "  ")
		if merr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to marshal JSON report: %v\n", merr)
		} else if werr := os.WriteFile(*jsonOutput, reportData, 0600); werr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write JSON report: %v\n", werr)
		}
	}

	fmt.Println()
	fmt.Println(result.GetProvisionSummary())

	if err != nil {
		os.Exit(1)
	}
}

// newOrchestrator wires the provisioning gateways together
func newOrchestrator(assetsDir, workspace, manifestPath string) *orchestrators.ProvisionOrchestrator {
	executor := gateways.NewScriptExecutor()
	verifier := gateways.NewDigestVerifier()
	downloader := gateways.NewDownloader(verifier, pgp.NewVerifier())

	return orchestrators.NewProvisionOrchestrator(
		gateways.NewPackageInstaller(executor),
		gateways.NewScriptInstaller(assetsDir),
		downloader,
		gateways.NewToolBuilder(executor),
		gateways.NewUserProvisioner(executor),
		gateways.NewRustupInstaller(downloader, verifier, executor),
		yaml.NewManifestStore(),
		orchestrators.ProvisionOrchestratorConfig{
			Workspace:    workspace,
			AssetDir:     assetsDir,
			ManifestPath: manifestPath,
			Logger:       &interfaces.StderrLogger{},
		},
	)
}

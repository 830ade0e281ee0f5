package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runPlan(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	recipesDir := fs.String("recipes-dir", "recipes", "Path to recipes directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron plan <environment> [options]

Show the ordered steps the provision pipeline would run for a recipe,
without executing anything.

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

	repo := yaml.NewRecipeRepository(*recipesDir)
	env, err := repo.GetEnvironment(ctx, fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	orch := newOrchestrator(*recipesDir, defaultWorkspace(), orchestrators.DefaultManifestPath)

	fmt.Printf("Provision plan for %s:\n", env.Name)
	for i, name := range orch.StepNames(env) {
		fmt.Printf("  %d. %s\n", i+1, name)
	}
}

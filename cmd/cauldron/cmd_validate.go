package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runValidate(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	recipesDir := fs.String("recipes-dir", "recipes", "Path to recipes directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron validate <environment> [options]

Parse and validate an environment recipe.

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

	repo := yaml.NewRecipeRepository(*recipesDir)
	env, err := repo.GetEnvironment(ctx, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s: %v\n", name, err)
		os.Exit(1)
	}

	fmt.Printf("✅ %s is valid\n", env.Name)
	if env.Tool.Name != "" {
		fmt.Printf("  tool: %s %s\n", env.Tool.Name, env.Tool.Version)
		fmt.Printf("  sha256: %s\n", env.Tool.SHA256)
	}
	fmt.Printf("  entrypoint: %s\n", env.Runtime.Entrypoint)
}

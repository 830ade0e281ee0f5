package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runCheckUpdates(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("check-updates", flag.ExitOnError)
	recipesDir := fs.String("recipes-dir", "recipes", "Path to recipes directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron check-updates [environment] [options]

Compare each recipe's pinned tool version against the latest upstream
release. Informational only; provisioning always uses the pinned version.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	repo := yaml.NewRecipeRepository(*recipesDir)
	fetcher := gateways.NewVersionFetcher()

	environments, err := listTargets(ctx, repo, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	outdated := 0
	for _, env := range environments {
		if env.Tool.Name == "" || env.Version.Source == "" {
			continue
		}

		latest, err := fetcher.FetchLatestVersion(ctx, &env.Version)
		if err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  %s: version check failed: %v\n", env.Name, err)
			continue
		}

		if latest == env.Tool.Version {
			fmt.Printf("✅ %s: %s %s is current\n", env.Name, env.Tool.Name, env.Tool.Version)
		} else {
			fmt.Printf("⬆️  %s: %s %s -> %s available\n", env.Name, env.Tool.Name, env.Tool.Version, latest)
			outdated++
		}
	}

	if outdated > 0 {
		os.Exit(1)
	}
}

// listTargets resolves the environments to check: the named one when an
// argument is given, otherwise every recipe in the repository.
func listTargets(ctx context.Context, repo *yaml.RecipeRepository, args []string) ([]*entities.Environment, error) {
	if len(args) > 0 {
		env, err := repo.GetEnvironment(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return []*entities.Environment{env}, nil
	}
	return repo.ListEnvironments(ctx)
}

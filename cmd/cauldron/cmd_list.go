package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	recipesDir := fs.String("recipes-dir", "recipes", "Path to recipes directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron list [options]

List available environment recipes.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	repo := yaml.NewRecipeRepository(*recipesDir)
	environments, err := repo.ListEnvironments(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(environments) == 0 {
		fmt.Println("No recipes found")
		return
	}

	for _, env := range environments {
		line := env.Name
		if env.Tool.Name != "" {
			line += fmt.Sprintf(" (%s %s)", env.Tool.Name, env.Tool.Version)
		}
		if env.Description != "" {
			line += " - " + env.Description
		}
		fmt.Println(line)
	}
}

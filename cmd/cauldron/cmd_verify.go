package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runVerify(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	recipesDir := fs.String("recipes-dir", "recipes", "Path to recipes directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron verify <environment> <archive> [options]

Verify an already-downloaded archive against the recipe's pinned sha256
digest, without provisioning anything.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	if fs.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "Error: environment name and archive path are required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	name := fs.Arg(0)
	archive := fs.Arg(1)

	repo := yaml.NewRecipeRepository(*recipesDir)
	env, err := repo.GetEnvironment(ctx, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if env.Tool.SHA256 == "" {
		fmt.Fprintf(os.Stderr, "Error: recipe %s pins no digest\n", name)
		os.Exit(1)
	}

	verifier := gateways.NewDigestVerifier()
	dgst, err := verifier.VerifyFile(archive, env.Tool.SHA256)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ %s matches pinned digest %s\n", archive, dgst)
}

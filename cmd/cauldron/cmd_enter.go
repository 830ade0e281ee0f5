package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

func runEnter(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("enter", flag.ExitOnError)
	manifest := fs.String("manifest", orchestrators.DefaultManifestPath, "Path to the runtime manifest")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron enter [options]

Execute the provisioned environment's runtime contract: check the
declared mounts, apply the declared environment, and run the entrypoint
with no arguments. The entrypoint's exit code becomes this command's
exit code.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	store := yaml.NewManifestStore()
	environment, contract, err := store.ReadManifest(*manifest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Entering environment %s via %s\n", environment, contract.Entrypoint)

	runner := gateways.NewEntrypointRunner()
	exitCode, err := runner.Run(ctx, contract)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(exitCode)
}

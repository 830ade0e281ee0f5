package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "provision":
		runProvision(ctx, os.Args[2:])
	case "plan":
		runPlan(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "validate":
		runValidate(ctx, os.Args[2:])
	case "verify":
		runVerify(ctx, os.Args[2:])
	case "enter":
		runEnter(ctx, os.Args[2:])
	case "check-updates":
		runCheckUpdates(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cauldron - Reproducible toolchain environment provisioner

Usage:
  cauldron <command> [options]

Commands:
  provision      Provision a toolchain environment from a recipe
  plan           Show the ordered steps a recipe would run
  list           List available environment recipes
  validate       Validate an environment recipe
  verify         Verify a downloaded archive against a recipe's pinned digest
  enter          Execute the provisioned environment's entrypoint
  check-updates  Check pinned tool versions against upstream releases

Use "cauldron <command> --help" for more information about a command.`)
}

// defaultWorkspace returns the scratch directory for downloads and
// extracted sources when none is flagged.
func defaultWorkspace() string {
	return filepath.Join(xdg.CacheHome, "cauldron")
}

package gateways

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// ToolBuilder compiles the verified tool source by delegating to the
// recipe's build script. Contract with the script: it is invoked with the
// extracted source root as working directory and is expected to leave a
// working tool binary on the search path. Its internals are opaque.
type ToolBuilder struct {
	executor *ScriptExecutor
	timeout  time.Duration
}

// NewToolBuilder creates a new tool builder
func NewToolBuilder(executor *ScriptExecutor) *ToolBuilder {
	return &ToolBuilder{
		executor: executor,
		timeout:  60 * time.Minute,
	}
}

// BuildTool runs the build script against the extracted source tree
func (tb *ToolBuilder) BuildTool(ctx context.Context, tool *entities.ToolSource, artifact *entities.Artifact) error {
	if tool.BuildScript == "" {
		return fmt.Errorf("tool %s declares no build script", tool.Name)
	}

	info, err := os.Stat(artifact.SourceDir)
	if err != nil {
		return fmt.Errorf("source directory %s is not usable: %w", artifact.SourceDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", artifact.SourceDir)
	}

	result := tb.executor.ExecuteScript(ctx, ExecuteScriptConfig{
		Script:     tool.BuildScript,
		WorkingDir: artifact.SourceDir,
		Env: map[string]string{
			"TOOL_NAME":    tool.Name,
			"TOOL_VERSION": tool.Version,
			"SOURCE_DIR":   artifact.SourceDir,
		},
		Timeout:     tb.timeout,
		Description: fmt.Sprintf("build %s %s from source", tool.Name, tool.Version),
	})

	if !result.Success {
		return fmt.Errorf("build script failed (exit %d): %w\nStderr: %s",
			result.ExitCode, result.Error, result.Stderr)
	}

	if result.Stdout != "" {
		fmt.Fprintf(os.Stderr, "Build output: %s\n", result.Stdout)
	}
	fmt.Fprintf(os.Stderr, "Build completed in %v\n", result.Duration)

	return nil
}

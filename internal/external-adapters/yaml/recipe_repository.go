package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// RecipeRepository implements repositories.EnvironmentRepository using YAML files
type RecipeRepository struct {
	recipesDir string
	parser     *RecipeParser
}

// NewRecipeRepository creates a new YAML-based recipe repository
func NewRecipeRepository(recipesDir string) *RecipeRepository {
	return &RecipeRepository{
		recipesDir: recipesDir,
		parser:     NewRecipeParser(),
	}
}

// GetEnvironment retrieves an environment recipe by name
func (r *RecipeRepository) GetEnvironment(_ context.Context, name string) (*entities.Environment, error) {
	filePath := filepath.Join(r.recipesDir, name+".yml")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("recipe not found: %s", name)
	}

	return r.parser.ParseFile(filePath)
}

// ListEnvironments returns all available environment recipes
func (r *RecipeRepository) ListEnvironments(_ context.Context) ([]*entities.Environment, error) {
	entries, err := os.ReadDir(r.recipesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipes directory: %w", err)
	}

	environments := make([]*entities.Environment, 0)
	for _, entry := range entries {
		// Skip non-YAML files
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		filePath := filepath.Join(r.recipesDir, entry.Name())
		env, err := r.parser.ParseFile(filePath)
		if err != nil {
			// Log warning but continue processing other files
			fmt.Fprintf(os.Stderr, "Warning: failed to parse %s: %v\n", entry.Name(), err)
			continue
		}

		environments = append(environments, env)
	}

	return environments, nil
}

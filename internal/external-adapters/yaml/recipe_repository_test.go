package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeRecipe(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write recipe: %v", err)
	}
}

func TestRecipeRepository_GetEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "awslc-cmake.yml", validRecipe)

	repo := NewRecipeRepository(dir)

	env, err := repo.GetEnvironment(context.Background(), "awslc-cmake")
	if err != nil {
		t.Fatalf("GetEnvironment() error = %v", err)
	}
	if env.Name != "awslc-cmake" {
		t.Errorf("Name = %q, want awslc-cmake", env.Name)
	}

	if _, err := repo.GetEnvironment(context.Background(), "nonexistent"); err == nil {
		t.Error("GetEnvironment() should fail for unknown recipe")
	}
}

func TestRecipeRepository_ListEnvironments(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "awslc-cmake.yml", validRecipe)
	writeRecipe(t, dir, "broken.yml", "name: [unclosed")
	writeRecipe(t, dir, "notes.txt", "not a recipe")

	repo := NewRecipeRepository(dir)

	environments, err := repo.ListEnvironments(context.Background())
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}

	// Broken and non-YAML files are skipped with a warning
	if len(environments) != 1 {
		t.Fatalf("ListEnvironments() = %d environments, want 1", len(environments))
	}
	if environments[0].Name != "awslc-cmake" {
		t.Errorf("Name = %q, want awslc-cmake", environments[0].Name)
	}
}

func TestRecipeRepository_MissingDirectory(t *testing.T) {
	repo := NewRecipeRepository(filepath.Join(t.TempDir(), "absent"))

	if _, err := repo.ListEnvironments(context.Background()); err == nil {
		t.Error("ListEnvironments() should fail for a missing directory")
	}
}

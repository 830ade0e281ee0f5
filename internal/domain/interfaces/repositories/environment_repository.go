// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// EnvironmentRepository defines the interface for accessing environment recipes
type EnvironmentRepository interface {
	// GetEnvironment retrieves an environment recipe by name
	GetEnvironment(ctx context.Context, name string) (*entities.Environment, error)

	// ListEnvironments returns all available environment recipes
	ListEnvironments(ctx context.Context) ([]*entities.Environment, error)
}

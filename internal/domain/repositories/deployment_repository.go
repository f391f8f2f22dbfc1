package repositories

import (
	"context"

	"usdc-bridge.backend/internal/domain/entities"
)

// DeploymentRepository stores per-network deployment records
type DeploymentRepository interface {
	Save(ctx context.Context, deployment *entities.Deployment) error
	Get(ctx context.Context, network string) (*entities.Deployment, error)
}

package repositories

import (
	"context"

	"github.com/google/uuid"
	"usdc-bridge.backend/internal/domain/entities"
)

// TransferRepository defines transfer history data operations
type TransferRepository interface {
	Create(ctx context.Context, transfer *entities.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Transfer, error)
	List(ctx context.Context, limit, offset int) ([]*entities.Transfer, int64, error)
	UpdateLifecycle(ctx context.Context, id uuid.UUID, state entities.LifecycleState) error
}

// TransferEventRepository defines transfer event data operations
type TransferEventRepository interface {
	Create(ctx context.Context, event *entities.TransferEvent) error
	GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*entities.TransferEvent, error)
}

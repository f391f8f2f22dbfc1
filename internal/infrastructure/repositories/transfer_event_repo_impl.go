package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/internal/infrastructure/models"
	"usdc-bridge.backend/pkg/utils"
)

// TransferEventRepository implements transfer event data operations
type TransferEventRepository struct {
	db *gorm.DB
}

// NewTransferEventRepository creates a new transfer event repository
func NewTransferEventRepository(db *gorm.DB) *TransferEventRepository {
	return &TransferEventRepository{db: db}
}

// Create creates a new transfer event
func (r *TransferEventRepository) Create(ctx context.Context, event *entities.TransferEvent) error {
	if event.ID == uuid.Nil {
		event.ID = utils.GenerateUUIDv7()
	}
	m := &models.TransferEvent{
		ID:         event.ID,
		TransferID: event.TransferID,
		Kind:       string(event.Kind),
		TxHash:     event.TxHash,
		Link:       event.Link,
		Message:    event.Message,
		CreatedAt:  event.CreatedAt,
	}
	return r.db.WithContext(ctx).Omit("Transfer").Create(m).Error
}

// GetByTransferID gets events for a transfer, oldest first
func (r *TransferEventRepository) GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*entities.TransferEvent, error) {
	var ms []models.TransferEvent
	if err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	events := make([]*entities.TransferEvent, 0, len(ms))
	for _, m := range ms {
		events = append(events, &entities.TransferEvent{
			ID:         m.ID,
			TransferID: m.TransferID,
			Kind:       entities.SignalKind(m.Kind),
			TxHash:     m.TxHash,
			Link:       m.Link,
			Message:    m.Message,
			CreatedAt:  m.CreatedAt,
		})
	}
	return events, nil
}

package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/infrastructure/models"
	"usdc-bridge.backend/pkg/utils"
)

// TransferRepository implements transfer history data operations
type TransferRepository struct {
	db *gorm.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *gorm.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create creates a new transfer
func (r *TransferRepository) Create(ctx context.Context, transfer *entities.Transfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = utils.GenerateUUIDv7()
	}
	m := &models.Transfer{
		ID:            transfer.ID,
		SourceChainID: transfer.SourceChainID,
		Account:       transfer.Account,
		Recipient:     transfer.Recipient,
		Amount:        transfer.Amount,
		GasMode:       string(transfer.GasMode),
		GasAmount:     transfer.GasAmount,
		DestChain:     transfer.DestChain,
		DestContract:  transfer.DestContract,
		Phase:         string(transfer.Phase),
		SourceTxHash:  transfer.SourceTxHash.Ptr(),
		DestTxHash:    transfer.DestTxHash.Ptr(),
		ErrorCode:     transfer.ErrorCode.Ptr(),
		ErrorMessage:  transfer.ErrorMessage.Ptr(),
		CompletedAt:   transfer.CompletedAt.Ptr(),
		CreatedAt:     transfer.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	transfer.CreatedAt = m.CreatedAt
	transfer.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets a transfer by ID
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transfer, error) {
	var m models.Transfer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// List returns transfers newest first with the total count
func (r *TransferRepository) List(ctx context.Context, limit, offset int) ([]*entities.Transfer, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Transfer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var ms []models.Transfer
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	transfers := make([]*entities.Transfer, 0, len(ms))
	for i := range ms {
		transfers = append(transfers, r.toEntity(&ms[i]))
	}
	return transfers, total, nil
}

// UpdateLifecycle copies a lifecycle snapshot onto the stored transfer.
// Hashes and errors are only ever filled in, never cleared.
func (r *TransferRepository) UpdateLifecycle(ctx context.Context, id uuid.UUID, state entities.LifecycleState) error {
	updates := map[string]interface{}{
		"phase":      string(state.Phase),
		"updated_at": time.Now(),
	}
	if state.SourceTxHash != "" {
		updates["source_tx_hash"] = state.SourceTxHash
	}
	if state.DestTxHash != "" {
		updates["dest_tx_hash"] = state.DestTxHash
	}
	if state.ErrorInfo != nil {
		updates["error_code"] = state.ErrorInfo.Code
		updates["error_message"] = state.ErrorInfo.Message
	}
	if state.Phase == entities.PhaseDelivered || state.Phase == entities.PhaseFailed {
		at := state.UpdatedAt
		if at.IsZero() {
			at = time.Now()
		}
		updates["completed_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&models.Transfer{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *TransferRepository) toEntity(m *models.Transfer) *entities.Transfer {
	return &entities.Transfer{
		ID:            m.ID,
		SourceChainID: m.SourceChainID,
		Account:       m.Account,
		Recipient:     m.Recipient,
		Amount:        m.Amount,
		GasMode:       entities.GasMode(m.GasMode),
		GasAmount:     m.GasAmount,
		DestChain:     m.DestChain,
		DestContract:  m.DestContract,
		Phase:         entities.Phase(m.Phase),
		SourceTxHash:  null.StringFromPtr(m.SourceTxHash),
		DestTxHash:    null.StringFromPtr(m.DestTxHash),
		ErrorCode:     null.StringFromPtr(m.ErrorCode),
		ErrorMessage:  null.StringFromPtr(m.ErrorMessage),
		CompletedAt:   null.TimeFromPtr(m.CompletedAt),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

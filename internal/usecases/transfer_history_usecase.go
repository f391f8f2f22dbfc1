package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/internal/domain/repositories"
	"usdc-bridge.backend/pkg/logger"
	"usdc-bridge.backend/pkg/utils"
)

// TransferDetail is one transfer with every signal recorded against it
type TransferDetail struct {
	Transfer *entities.Transfer        `json:"transfer"`
	Events   []*entities.TransferEvent `json:"events"`
}

// TransferHistoryUsecase records bridge requests and their signals. Recording
// never blocks or fails a bridge; write errors are only logged.
type TransferHistoryUsecase struct {
	transferRepo repositories.TransferRepository
	eventRepo    repositories.TransferEventRepository
	decimals     int
}

// NewTransferHistoryUsecase creates a new transfer history usecase
func NewTransferHistoryUsecase(
	transferRepo repositories.TransferRepository,
	eventRepo repositories.TransferEventRepository,
	decimals int,
) *TransferHistoryUsecase {
	if decimals <= 0 {
		decimals = TokenDecimals
	}
	return &TransferHistoryUsecase{
		transferRepo: transferRepo,
		eventRepo:    eventRepo,
		decimals:     decimals,
	}
}

// OnRequest persists an accepted request
func (u *TransferHistoryUsecase) OnRequest(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot) {
	gasDecimals := NativeDecimals
	if req.GasPrepay.Mode == entities.GasModeToken {
		gasDecimals = u.decimals
	}
	transfer := &entities.Transfer{
		ID:            req.ID,
		SourceChainID: snap.Binding.ChainID,
		Account:       snap.Account.Hex(),
		Recipient:     req.Recipient.Hex(),
		Amount:        FormatUnits(req.Amount, u.decimals),
		GasMode:       req.GasPrepay.Mode,
		GasAmount:     FormatUnits(req.GasPrepay.Amount, gasDecimals),
		DestChain:     req.DestChainName,
		DestContract:  req.DestContractAddress,
		Phase:         entities.PhaseIdle,
	}
	if err := u.transferRepo.Create(ctx, transfer); err != nil {
		logger.Error(ctx, "Failed to record transfer", zap.String("transfer_id", req.ID.String()), zap.Error(err))
	}
}

// OnTransition mirrors the lifecycle onto the stored transfer
func (u *TransferHistoryUsecase) OnTransition(ctx context.Context, state entities.LifecycleState) {
	if state.RequestID == uuid.Nil {
		return
	}
	if err := u.transferRepo.UpdateLifecycle(ctx, state.RequestID, state); err != nil {
		logger.Error(ctx, "Failed to update transfer lifecycle",
			zap.String("transfer_id", state.RequestID.String()),
			zap.String("phase", string(state.Phase)),
			zap.Error(err),
		)
	}
}

// OnSignal appends a signal to the transfer's event log
func (u *TransferHistoryUsecase) OnSignal(sig entities.Signal) {
	if sig.RequestID == uuid.Nil {
		return
	}
	at := sig.At
	if at.IsZero() {
		at = time.Now()
	}
	event := &entities.TransferEvent{
		ID:         uuid.New(),
		TransferID: sig.RequestID,
		Kind:       sig.Kind,
		TxHash:     sig.TxHash,
		Link:       sig.Link,
		Message:    sig.Message,
		CreatedAt:  at,
	}
	ctx := context.Background()
	if err := u.eventRepo.Create(ctx, event); err != nil {
		logger.Error(ctx, "Failed to record transfer event",
			zap.String("transfer_id", sig.RequestID.String()),
			zap.String("kind", string(sig.Kind)),
			zap.Error(err),
		)
	}
}

// List returns one page of transfers, newest first
func (u *TransferHistoryUsecase) List(ctx context.Context, page, limit int) ([]*entities.Transfer, utils.PaginationMeta, error) {
	params := utils.GetPaginationParams(page, limit)
	transfers, total, err := u.transferRepo.List(ctx, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, utils.PaginationMeta{}, err
	}
	return transfers, utils.CalculateMeta(total, params.Page, params.Limit), nil
}

// Get returns a transfer with its events in the order they were raised
func (u *TransferHistoryUsecase) Get(ctx context.Context, id uuid.UUID) (*TransferDetail, error) {
	transfer, err := u.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	events, err := u.eventRepo.GetByTransferID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TransferDetail{Transfer: transfer, Events: events}, nil
}

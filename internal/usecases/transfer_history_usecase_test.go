package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
)

type mockTransferRepo struct {
	mock.Mock
}

func (m *mockTransferRepo) Create(ctx context.Context, transfer *entities.Transfer) error {
	return m.Called(ctx, transfer).Error(0)
}

func (m *mockTransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Transfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transfer), args.Error(1)
}

func (m *mockTransferRepo) List(ctx context.Context, limit, offset int) ([]*entities.Transfer, int64, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*entities.Transfer), args.Get(1).(int64), args.Error(2)
}

func (m *mockTransferRepo) UpdateLifecycle(ctx context.Context, id uuid.UUID, state entities.LifecycleState) error {
	return m.Called(ctx, id, state).Error(0)
}

type mockTransferEventRepo struct {
	mock.Mock
}

func (m *mockTransferEventRepo) Create(ctx context.Context, event *entities.TransferEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockTransferEventRepo) GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*entities.TransferEvent, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TransferEvent), args.Error(1)
}

func TestTransferHistory_OnRequestRecordsTransfer(t *testing.T) {
	transfers := new(mockTransferRepo)
	events := new(mockTransferEventRepo)
	uc := NewTransferHistoryUsecase(transfers, events, 6)

	req := nativeRequest(1_500_000)
	snap := SessionSnapshot{Account: testAccount, Binding: entities.ChainBinding{ChainID: testSourceChainID, IsSupportedSource: true}}

	transfers.On("Create", mock.Anything, mock.MatchedBy(func(tr *entities.Transfer) bool {
		return tr.ID == req.ID &&
			tr.SourceChainID == testSourceChainID &&
			tr.Account == testAccount.Hex() &&
			tr.Amount == "1.500000" &&
			tr.GasMode == entities.GasModeNative &&
			tr.GasAmount == "0.010000000000000000" &&
			tr.Phase == entities.PhaseIdle
	})).Return(nil).Once()

	uc.OnRequest(context.Background(), req, snap)
	transfers.AssertExpectations(t)
}

func TestTransferHistory_WriteErrorsAreSwallowed(t *testing.T) {
	transfers := new(mockTransferRepo)
	events := new(mockTransferEventRepo)
	uc := NewTransferHistoryUsecase(transfers, events, 6)

	transfers.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))
	transfers.On("UpdateLifecycle", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("db down"))
	events.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	req := nativeRequest(1)
	require.NotPanics(t, func() {
		uc.OnRequest(context.Background(), req, SessionSnapshot{})
		uc.OnTransition(context.Background(), entities.LifecycleState{Phase: entities.PhaseApproving, RequestID: req.ID})
		uc.OnSignal(entities.Signal{Kind: entities.SignalApproved, RequestID: req.ID})
	})
}

func TestTransferHistory_TransitionsAndSignals(t *testing.T) {
	transfers := new(mockTransferRepo)
	events := new(mockTransferEventRepo)
	uc := NewTransferHistoryUsecase(transfers, events, 6)
	id := uuid.New()

	state := entities.LifecycleState{Phase: entities.PhaseAwaitingRelay, RequestID: id, SourceTxHash: "0xaa"}
	transfers.On("UpdateLifecycle", mock.Anything, id, state).Return(nil).Once()
	uc.OnTransition(context.Background(), state)

	// dismissal back to Idle carries no request
	uc.OnTransition(context.Background(), entities.LifecycleState{Phase: entities.PhaseIdle})

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events.On("Create", mock.Anything, mock.MatchedBy(func(e *entities.TransferEvent) bool {
		return e.TransferID == id && e.Kind == entities.SignalSent && e.TxHash == "0xaa" && e.CreatedAt.Equal(at) && e.ID != uuid.Nil
	})).Return(nil).Once()
	uc.OnSignal(entities.Signal{Kind: entities.SignalSent, RequestID: id, TxHash: "0xaa", At: at})
	uc.OnSignal(entities.Signal{Kind: entities.SignalSent})

	transfers.AssertExpectations(t)
	events.AssertExpectations(t)
	transfers.AssertNumberOfCalls(t, "UpdateLifecycle", 1)
	events.AssertNumberOfCalls(t, "Create", 1)
}

func TestTransferHistory_ListPaginates(t *testing.T) {
	transfers := new(mockTransferRepo)
	uc := NewTransferHistoryUsecase(transfers, new(mockTransferEventRepo), 6)

	page := []*entities.Transfer{{ID: uuid.New()}, {ID: uuid.New()}}
	transfers.On("List", mock.Anything, 2, 2).Return(page, int64(5), nil).Once()

	got, meta, err := uc.List(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 2, meta.Page)
	require.Equal(t, 3, meta.TotalPages)
	require.Equal(t, int64(5), meta.TotalCount)
}

func TestTransferHistory_Get(t *testing.T) {
	transfers := new(mockTransferRepo)
	events := new(mockTransferEventRepo)
	uc := NewTransferHistoryUsecase(transfers, events, 6)

	id := uuid.New()
	transfers.On("GetByID", mock.Anything, id).Return(&entities.Transfer{ID: id}, nil).Once()
	events.On("GetByTransferID", mock.Anything, id).Return([]*entities.TransferEvent{{Kind: entities.SignalApproved}}, nil).Once()

	detail, err := uc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, detail.Transfer.ID)
	require.Len(t, detail.Events, 1)

	missing := uuid.New()
	transfers.On("GetByID", mock.Anything, missing).Return(nil, domainerrors.ErrNotFound).Once()
	_, err = uc.Get(context.Background(), missing)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

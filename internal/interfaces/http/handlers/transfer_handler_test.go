package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/usecases"
	"usdc-bridge.backend/pkg/utils"
)

type transferServiceStub struct {
	listFn func(ctx context.Context, page, limit int) ([]*entities.Transfer, utils.PaginationMeta, error)
	getFn  func(ctx context.Context, id uuid.UUID) (*usecases.TransferDetail, error)
}

func (s transferServiceStub) List(ctx context.Context, page, limit int) ([]*entities.Transfer, utils.PaginationMeta, error) {
	return s.listFn(ctx, page, limit)
}
func (s transferServiceStub) Get(ctx context.Context, id uuid.UUID) (*usecases.TransferDetail, error) {
	return s.getFn(ctx, id)
}

func TestTransferHandler_List(t *testing.T) {
	transferID := uuid.New()
	var gotPage, gotLimit int
	h := NewTransferHandler(transferServiceStub{
		listFn: func(_ context.Context, page, limit int) ([]*entities.Transfer, utils.PaginationMeta, error) {
			gotPage, gotLimit = page, limit
			if page == 9 {
				return nil, utils.PaginationMeta{}, errors.New("list boom")
			}
			return []*entities.Transfer{{ID: transferID, Phase: entities.PhaseDelivered}}, utils.CalculateMeta(1, page, limit), nil
		},
	})
	r := newTestRouter()
	r.GET("/transfers", h.ListTransfers)

	w := doJSON(t, r, http.MethodGet, "/transfers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, gotPage)
	require.Equal(t, 10, gotLimit)
	body := decodeBody(t, w)
	require.Len(t, body["transfers"], 1)
	require.Equal(t, float64(1), body["meta"].(map[string]interface{})["totalCount"])

	w = doJSON(t, r, http.MethodGet, "/transfers?page=2&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 2, gotPage)
	require.Equal(t, 5, gotLimit)

	w = doJSON(t, r, http.MethodGet, "/transfers?page=9", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTransferHandler_Get(t *testing.T) {
	transferID := uuid.New()
	h := NewTransferHandler(transferServiceStub{
		getFn: func(_ context.Context, id uuid.UUID) (*usecases.TransferDetail, error) {
			if id != transferID {
				return nil, domainerrors.ErrNotFound
			}
			return &usecases.TransferDetail{
				Transfer: &entities.Transfer{ID: id, Phase: entities.PhaseAwaitingRelay},
				Events:   []*entities.TransferEvent{{TransferID: id, Kind: entities.SignalSent, TxHash: "0xabc"}},
			}, nil
		},
	})
	r := newTestRouter()
	r.GET("/transfers/:id", h.GetTransfer)

	w := doJSON(t, r, http.MethodGet, "/transfers/"+transferID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	require.Len(t, body["events"], 1)
	require.NotNil(t, body["transfer"])

	w = doJSON(t, r, http.MethodGet, "/transfers/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/transfers/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

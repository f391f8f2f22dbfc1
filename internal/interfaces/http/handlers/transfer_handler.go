package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/interfaces/http/response"
	"usdc-bridge.backend/internal/usecases"
	"usdc-bridge.backend/pkg/utils"
)

type TransferService interface {
	List(ctx context.Context, page, limit int) ([]*entities.Transfer, utils.PaginationMeta, error)
	Get(ctx context.Context, id uuid.UUID) (*usecases.TransferDetail, error)
}

// TransferHandler serves the transfer history
type TransferHandler struct {
	history TransferService
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(history TransferService) *TransferHandler {
	return &TransferHandler{history: history}
}

// ListTransfers lists recorded transfers, newest first
// GET /api/v1/transfers
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	transfers, meta, err := h.history.List(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"transfers": transfers,
		"meta":      meta,
	})
}

// GetTransfer returns one transfer with its lifecycle events
// GET /api/v1/transfers/:id
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	id, err := utils.ParseID(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid transfer ID"))
		return
	}

	detail, err := h.history.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("Transfer not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, detail)
}

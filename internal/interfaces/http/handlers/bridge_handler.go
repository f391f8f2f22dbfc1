package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/interfaces/http/response"
	"usdc-bridge.backend/internal/usecases"
	"usdc-bridge.backend/pkg/logger"
)

type BridgeService interface {
	Submit(ctx context.Context, req *entities.BridgeRequest) error
	Execute(ctx context.Context, req *entities.BridgeRequest) (entities.LifecycleState, error)
	State() entities.LifecycleState
	Dismiss(ctx context.Context) error
}

type SnapshotReader interface {
	Snapshot() usecases.SessionSnapshot
}

type SignalSource interface {
	Subscribe(fn usecases.SignalListener) func()
}

// streamHeartbeat keeps idle SSE connections from being cut by proxies
var streamHeartbeat = 15 * time.Second

const signalBuffer = 32

// BridgeHandler starts bridge requests and reports their lifecycle
type BridgeHandler struct {
	bridge   BridgeService
	session  SnapshotReader
	signals  SignalSource
	networks *config.Networks
}

// NewBridgeHandler creates a new bridge handler
func NewBridgeHandler(bridge BridgeService, session SnapshotReader, signals SignalSource, networks *config.Networks) *BridgeHandler {
	return &BridgeHandler{
		bridge:   bridge,
		session:  session,
		signals:  signals,
		networks: networks,
	}
}

// Submit starts a bridge request for the active account.
// With ?wait=true the call returns once the source transaction is mined or failed.
// POST /api/v1/bridge
func (h *BridgeHandler) Submit(c *gin.Context) {
	var input usecases.BridgeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	snap := h.session.Snapshot()
	if !snap.Connected {
		response.Error(c, domainerrors.Preflight(domainerrors.ErrWalletNotConnected, ""))
		return
	}

	req, err := usecases.NewBridgeRequest(h.networks, snap.Account, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := logger.WithTransferID(c.Request.Context(), req.ID.String())
	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	if wait {
		state, err := h.bridge.Execute(ctx, req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"requestId": req.ID,
			"state":     state,
		})
		return
	}

	if err := h.bridge.Submit(ctx, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{
		"requestId": req.ID,
		"state":     h.bridge.State(),
	})
}

// GetState returns the bridge lifecycle state
// GET /api/v1/bridge/state
func (h *BridgeHandler) GetState(c *gin.Context) {
	response.Success(c, http.StatusOK, h.bridge.State())
}

// Dismiss returns a settled or relaying lifecycle to Idle
// POST /api/v1/bridge/dismiss
func (h *BridgeHandler) Dismiss(c *gin.Context) {
	if err := h.bridge.Dismiss(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.bridge.State())
}

// StreamSignals pushes lifecycle signals as server-sent events. The current
// state is sent first so a reconnecting client never misses a phase.
// GET /api/v1/notifications/stream
func (h *BridgeHandler) StreamSignals(c *gin.Context) {
	ctx := c.Request.Context()
	signals := make(chan entities.Signal, signalBuffer)
	unsubscribe := h.signals.Subscribe(func(sig entities.Signal) {
		select {
		case signals <- sig:
		default:
			logger.Warn(ctx, "Dropping signal for slow stream client", zap.String("kind", string(sig.Kind)))
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.SSEvent("state", h.bridge.State())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case sig := <-signals:
			c.SSEvent(string(sig.Kind), sig)
			return true
		case <-heartbeat.C:
			c.SSEvent("state", h.bridge.State())
			return true
		}
	})
}

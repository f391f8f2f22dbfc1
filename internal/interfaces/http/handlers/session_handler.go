package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/interfaces/http/response"
	"usdc-bridge.backend/internal/usecases"
)

type SessionService interface {
	Snapshot() usecases.SessionSnapshot
	RefreshBalances(ctx context.Context) (entities.Balances, error)
	SwitchNetwork(chainID int64) error
	SwitchAccount(raw string) error
	Accounts() []common.Address
}

// SessionView is the session as the operator UI sees it
type SessionView struct {
	Connected         bool              `json:"connected"`
	Account           string            `json:"account,omitempty"`
	Accounts          []string          `json:"accounts"`
	ChainID           int64             `json:"chainId"`
	Network           string            `json:"network,omitempty"`
	IsSupportedSource bool              `json:"isSupportedSource"`
	Contracts         map[string]string `json:"contracts,omitempty"`
	Balances          entities.Balances `json:"balances"`
	TokenSymbol       string            `json:"tokenSymbol,omitempty"`
}

// SessionHandler serves the network/account binding and the amount normalizer
type SessionHandler struct {
	session  SessionService
	networks *config.Networks
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(session SessionService, networks *config.Networks) *SessionHandler {
	return &SessionHandler{session: session, networks: networks}
}

// GetConfig returns the static networks document
// GET /api/v1/config
func (h *SessionHandler) GetConfig(c *gin.Context) {
	response.Success(c, http.StatusOK, h.networks)
}

// GetSession returns the current chain binding, account, contracts and balances
// GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	response.Success(c, http.StatusOK, h.view())
}

// SwitchNetwork asks the wallet to move to another chain
// POST /api/v1/wallet/network
func (h *SessionHandler) SwitchNetwork(c *gin.Context) {
	var input struct {
		ChainID int64 `json:"chainId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.session.SwitchNetwork(input.ChainID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{
		"message":           "Network switch requested",
		"chainId":           input.ChainID,
		"isSupportedSource": h.networks.IsSupportedSource(input.ChainID),
	})
}

// SwitchAccount asks the wallet to make another managed account active
// POST /api/v1/wallet/account
func (h *SessionHandler) SwitchAccount(c *gin.Context) {
	var input struct {
		Account string `json:"account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	if err := h.session.SwitchAccount(strings.TrimSpace(input.Account)); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{
		"message": "Account switch requested",
		"account": common.HexToAddress(input.Account).Hex(),
	})
}

// RefreshBalances reads both balances now
// POST /api/v1/balances/refresh
func (h *SessionHandler) RefreshBalances(c *gin.Context) {
	balances, err := h.session.RefreshBalances(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, balances)
}

// NormalizeAmount runs raw input through the amount normalizer
// GET /api/v1/amount/normalize?raw=
func (h *SessionHandler) NormalizeAmount(c *gin.Context) {
	raw := c.Query("raw")
	response.Success(c, http.StatusOK, gin.H{
		"raw":        raw,
		"normalized": usecases.NormalizeAmount(raw, h.networks.Bridge.TokenDecimals),
	})
}

func (h *SessionHandler) view() SessionView {
	snap := h.session.Snapshot()
	view := SessionView{
		Connected:         snap.Connected,
		ChainID:           snap.Binding.ChainID,
		IsSupportedSource: snap.Binding.IsSupportedSource,
		Contracts:         snap.Contracts.Addresses(),
		Balances:          snap.Balances,
		Accounts:          []string{},
	}
	if snap.Connected {
		view.Account = snap.Account.Hex()
	}
	if chain, ok := h.networks.Chain(snap.Binding.ChainID); ok {
		view.Network = chain.Name
	}
	if symbols := h.networks.Bridge.TokenSymbols; len(symbols) > 0 {
		view.TokenSymbol = symbols[0]
	}
	for _, acct := range h.session.Accounts() {
		view.Accounts = append(view.Accounts, acct.Hex())
	}
	return view
}

package usecases

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/pkg/utils"
)

// BridgeInput is the operator-facing form of a bridge request. Amounts are decimal strings.
type BridgeInput struct {
	Amount        string `json:"amount" binding:"required"`
	Recipient     string `json:"recipient"`
	DestChain     string `json:"destChain"`
	DestContract  string `json:"destContract"`
	GasMode       string `json:"gasMode"`
	GasAmount     string `json:"gasAmount"`
	RefundAddress string `json:"refundAddress"`
}

// NewBridgeRequest builds one immutable request from operator input.
// Unset fields fall back to the account and the configured destination.
func NewBridgeRequest(networks *config.Networks, account common.Address, in BridgeInput) (*entities.BridgeRequest, error) {
	decimals := networks.Bridge.TokenDecimals

	amount, err := ParseUnits(in.Amount, decimals)
	if err != nil {
		return nil, domainerrors.Preflight(domainerrors.ErrInvalidAmount, "Amount must be greater than 0")
	}

	recipient := account
	if raw := strings.TrimSpace(in.Recipient); raw != "" {
		if !common.IsHexAddress(raw) {
			return nil, domainerrors.Preflight(domainerrors.ErrInvalidAddress, "Invalid recipient address")
		}
		recipient = common.HexToAddress(raw)
	}

	destChain := strings.TrimSpace(in.DestChain)
	if destChain == "" {
		destChain = networks.Bridge.DestChain
	}
	destContract := strings.TrimSpace(in.DestContract)
	if destContract == "" {
		if dest, ok := networks.Destination(); ok {
			destContract = dest.Receiver
		}
	}

	gas := entities.GasPrepay{Mode: entities.GasMode(strings.ToLower(strings.TrimSpace(in.GasMode)))}
	switch gas.Mode {
	case "", entities.GasModeNative:
		gas.Mode = entities.GasModeNative
		raw := in.GasAmount
		if strings.TrimSpace(raw) == "" {
			raw = networks.Bridge.DefaultGasEth
		}
		if gas.Amount, err = ParseUnits(raw, NativeDecimals); err != nil {
			return nil, domainerrors.BadRequest("invalid gas amount")
		}
	case entities.GasModeToken:
		if gas.Amount, err = ParseUnits(in.GasAmount, decimals); err != nil {
			return nil, domainerrors.BadRequest("invalid gas fee")
		}
		gas.Refund = account
		if raw := strings.TrimSpace(in.RefundAddress); raw != "" {
			if !common.IsHexAddress(raw) {
				return nil, domainerrors.Preflight(domainerrors.ErrInvalidAddress, "Invalid refund address")
			}
			gas.Refund = common.HexToAddress(raw)
		}
	default:
		return nil, domainerrors.BadRequest("gasMode must be native or token")
	}

	return &entities.BridgeRequest{
		ID:                  utils.GenerateUUIDv7(),
		DestChainName:       destChain,
		DestContractAddress: destContract,
		Recipient:           recipient,
		Amount:              amount,
		GasPrepay:           gas,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

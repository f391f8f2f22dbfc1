package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Phase is a bridge lifecycle phase
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseApproving     Phase = "APPROVING"
	PhaseSending       Phase = "SENDING"
	PhaseAwaitingRelay Phase = "AWAITING_RELAY"
	PhaseDelivered     Phase = "DELIVERED"
	PhaseFailed        Phase = "FAILED"
)

// InFlight reports whether a new request must be refused while in this phase.
func (p Phase) InFlight() bool {
	switch p {
	case PhaseApproving, PhaseSending, PhaseAwaitingRelay:
		return true
	}
	return false
}

// GasMode selects how the relay gas is prepaid
type GasMode string

const (
	GasModeNative GasMode = "native"
	GasModeToken  GasMode = "token"
)

// GasPrepay is either a native-currency value or an ERC-20 fee in the bridged token.
type GasPrepay struct {
	Mode   GasMode        `json:"mode"`
	Amount *big.Int       `json:"amount"`
	Refund common.Address `json:"refundAddress,omitempty"`
}

// BridgeRequest describes exactly one on-chain send. Treat as immutable once built.
type BridgeRequest struct {
	ID                  uuid.UUID      `json:"id"`
	DestChainName       string         `json:"destChainName"`
	DestContractAddress string         `json:"destContractAddress"`
	Recipient           common.Address `json:"recipient"`
	Amount              *big.Int       `json:"amount"`
	GasPrepay           GasPrepay      `json:"gasPrepay"`
	CreatedAt           time.Time      `json:"createdAt"`
}

// RequiredAllowance is what the Sender must be allowed to pull.
// Paying gas in the token pulls the fee on top of the amount.
func (r *BridgeRequest) RequiredAllowance() *big.Int {
	need := new(big.Int)
	if r.Amount != nil {
		need.Set(r.Amount)
	}
	if r.GasPrepay.Mode == GasModeToken && r.GasPrepay.Amount != nil {
		need.Add(need, r.GasPrepay.Amount)
	}
	return need
}

// ErrorInfo is the user-facing failure description
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LifecycleState is the bridge state machine snapshot
type LifecycleState struct {
	Phase        Phase      `json:"phase"`
	RequestID    uuid.UUID  `json:"requestId,omitempty"`
	SourceTxHash string     `json:"sourceTxHash,omitempty"`
	DestTxHash   string     `json:"destTxHash,omitempty"`
	ErrorInfo    *ErrorInfo `json:"errorInfo,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Delivery is one observed Received event on the destination chain
type Delivery struct {
	Recipient   common.Address `json:"recipient"`
	Amount      *big.Int       `json:"amount"`
	SourceChain string         `json:"sourceChain"`
	TxHash      string         `json:"txHash"`
	LogIndex    uint           `json:"logIndex"`
	BlockNumber uint64         `json:"blockNumber"`
}

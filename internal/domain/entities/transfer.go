package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// Transfer is the persisted history of one BridgeRequest
type Transfer struct {
	ID            uuid.UUID   `json:"id"`
	SourceChainID int64       `json:"sourceChainId"`
	Account       string      `json:"account"`
	Recipient     string      `json:"recipient"`
	Amount        string      `json:"amount"`
	GasMode       GasMode     `json:"gasMode"`
	GasAmount     string      `json:"gasAmount"`
	DestChain     string      `json:"destChain"`
	DestContract  string      `json:"destContract"`
	Phase         Phase       `json:"phase"`
	SourceTxHash  null.String `json:"sourceTxHash,omitempty"`
	DestTxHash    null.String `json:"destTxHash,omitempty"`
	ErrorCode     null.String `json:"errorCode,omitempty"`
	ErrorMessage  null.String `json:"errorMessage,omitempty"`
	CompletedAt   null.Time   `json:"completedAt,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// TransferEvent is one lifecycle signal recorded against a transfer
type TransferEvent struct {
	ID         uuid.UUID  `json:"id"`
	TransferID uuid.UUID  `json:"transferId"`
	Kind       SignalKind `json:"kind"`
	TxHash     string     `json:"txHash,omitempty"`
	Link       string     `json:"link,omitempty"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Deployment is the record a deploy command leaves for later commands
type Deployment struct {
	Network    string            `json:"network"`
	ChainID    int64             `json:"chainId"`
	Deployer   string            `json:"deployer"`
	Contracts  map[string]string `json:"contracts"`
	TxHashes   map[string]string `json:"txHashes,omitempty"`
	DeployedAt time.Time         `json:"deployedAt"`
}

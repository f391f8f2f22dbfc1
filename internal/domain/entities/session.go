package entities

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// ChainBinding is recomputed on every network change, never mutated
type ChainBinding struct {
	ChainID           int64 `json:"chainId"`
	IsSupportedSource bool  `json:"isSupportedSource"`
}

// Balances holds both token balances, always refreshed together
type Balances struct {
	Source    string    `json:"sourceBalance"`
	Dest      string    `json:"destBalance"`
	SourceRaw *big.Int  `json:"-"`
	DestRaw   *big.Int  `json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SignalKind names a lifecycle notification
type SignalKind string

const (
	SignalApproved SignalKind = "approved"
	SignalSent     SignalKind = "sent"
	SignalRelaying SignalKind = "relaying"
	SignalReceived SignalKind = "received"
	SignalReverted SignalKind = "reverted"
)

// Signal is emitted on lifecycle transitions for the notification surface
type Signal struct {
	Kind      SignalKind `json:"kind"`
	RequestID uuid.UUID  `json:"requestId"`
	TxHash    string     `json:"txHash,omitempty"`
	Link      string     `json:"link,omitempty"`
	Message   string     `json:"message,omitempty"`
	At        time.Time  `json:"at"`
}

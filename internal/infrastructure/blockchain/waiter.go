package blockchain

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"usdc-bridge.backend/pkg/logger"
)

const defaultReceiptPollInterval = 2 * time.Second

// ReceiptWaiter polls for a transaction receipt until it is mined.
// There is no built-in timeout; the caller's context bounds the wait.
type ReceiptWaiter struct {
	client   *EVMClient
	interval time.Duration
}

// NewReceiptWaiter creates a waiter polling every interval
func NewReceiptWaiter(client *EVMClient, interval time.Duration) *ReceiptWaiter {
	if interval <= 0 {
		interval = defaultReceiptPollInterval
	}
	return &ReceiptWaiter{client: client, interval: interval}
}

// WaitReceipt blocks until hash is mined and returns its receipt
func (w *ReceiptWaiter) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		receipt, err := w.client.GetTransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			logger.Debug(ctx, "Receipt lookup failed, retrying",
				zap.String("tx_hash", hash.Hex()),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

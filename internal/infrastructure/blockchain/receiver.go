package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/pkg/logger"
)

const defaultLogPollInterval = 5 * time.Second

var receivedTopic = receiverABI.Events["Received"].ID

// Receiver is a handle on the destination-chain Receiver contract
type Receiver struct {
	*boundContract
	pollInterval time.Duration
	replayBlocks uint64
}

// NewReceiver binds a Receiver handle at address. Pass a nil signer for a read-only handle.
func NewReceiver(client *EVMClient, address common.Address, signer Signer) *Receiver {
	return &Receiver{
		boundContract: newBoundContract(client, address, receiverABI, signer),
		pollInterval:  defaultLogPollInterval,
	}
}

// SetPollInterval sets how often the log poller checks for new blocks
func (r *Receiver) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

// SetReplayBlocks makes WatchReceived first re-emit events from the last n blocks,
// so events mined while no watcher was bound are not lost. Consumers dedupe replays.
func (r *Receiver) SetReplayBlocks(n uint64) {
	r.replayBlocks = n
}

// replayStart is the first block of the replay window ending at head
func (r *Receiver) replayStart(head uint64) uint64 {
	if r.replayBlocks > head {
		return 0
	}
	return head + 1 - r.replayBlocks
}

// ExpectedSourceChainHash reads the trusted source chain hash fixed at deploy time
func (r *Receiver) ExpectedSourceChainHash(ctx context.Context) (common.Hash, error) {
	raw, err := callTyped[[32]byte](ctx, r.boundContract, "expectedSourceChainHash")
	return common.Hash(raw), err
}

// ExpectedSourceAddressHash reads the trusted sender address hash fixed at deploy time
func (r *Receiver) ExpectedSourceAddressHash(ctx context.Context) (common.Hash, error) {
	raw, err := callTyped[[32]byte](ctx, r.boundContract, "expectedSourceAddressHash")
	return common.Hash(raw), err
}

// Owner reads the receiver owner
func (r *Receiver) Owner(ctx context.Context) (common.Address, error) {
	return callTyped[common.Address](ctx, r.boundContract, "owner")
}

// Sweep moves stuck tokens out of the receiver. Owner only.
func (r *Receiver) Sweep(ctx context.Context, token, to common.Address, amount *big.Int) (common.Hash, error) {
	return r.transact(ctx, nil, "sweep", token, to, amount)
}

func (r *Receiver) receivedQuery(recipients []common.Address) ethereum.FilterQuery {
	topics := [][]common.Hash{{receivedTopic}}
	if len(recipients) > 0 {
		filter := make([]common.Hash, 0, len(recipients))
		for _, rcpt := range recipients {
			filter = append(filter, common.BytesToHash(rcpt.Bytes()))
		}
		topics = append(topics, filter)
	}
	return ethereum.FilterQuery{
		Addresses: []common.Address{r.address},
		Topics:    topics,
	}
}

// FilterReceived returns Received events between from and to inclusive,
// querying in chunks of at most chunk blocks.
func (r *Receiver) FilterReceived(ctx context.Context, from, to, chunk uint64, recipients ...common.Address) ([]entities.Delivery, error) {
	if chunk == 0 {
		chunk = to - from + 1
	}
	var out []entities.Delivery
	for start := from; start <= to; start += chunk {
		end := start + chunk - 1
		if end > to {
			end = to
		}
		q := r.receivedQuery(recipients)
		q.FromBlock = new(big.Int).SetUint64(start)
		q.ToBlock = new(big.Int).SetUint64(end)
		logs, err := r.client.FilterLogs(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("get logs %d-%d: %w", start, end, err)
		}
		for _, l := range logs {
			if l.Removed {
				continue
			}
			d, err := DecodeReceived(l)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
		if end == to {
			break
		}
	}
	return out, nil
}

// WatchReceived streams every Received event into sink, whatever recipient it names.
// Uses a log subscription when the endpoint supports one and polls eth_getLogs otherwise.
func (r *Receiver) WatchReceived(ctx context.Context, sink chan<- entities.Delivery) (event.Subscription, error) {
	q := r.receivedQuery(nil)
	if r.client.Backend() != nil {
		logs := make(chan types.Log, 16)
		sub, err := r.client.SubscribeFilterLogs(ctx, q, logs)
		if err == nil {
			return r.forwardSubscription(sub, logs, r.backfill(ctx), sink), nil
		}
		logger.Debug(ctx, "Log subscription unavailable, polling instead",
			zap.String("receiver", r.address.Hex()),
			zap.Error(err),
		)
	}
	return r.pollReceived(ctx, q, sink)
}

// backfill reads the replay window once the live subscription is up. Failures only cost the replay.
func (r *Receiver) backfill(ctx context.Context) []entities.Delivery {
	if r.replayBlocks == 0 {
		return nil
	}
	head, err := r.client.GetBlockNumber(ctx)
	if err != nil {
		logger.Warn(ctx, "Receiver backfill: block number failed", zap.Error(err))
		return nil
	}
	out, err := r.FilterReceived(ctx, r.replayStart(head), head, 0)
	if err != nil {
		logger.Warn(ctx, "Receiver backfill: get logs failed", zap.Error(err))
		return nil
	}
	return out
}

func (r *Receiver) forwardSubscription(sub ethereum.Subscription, logs <-chan types.Log, replay []entities.Delivery, sink chan<- entities.Delivery) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for _, d := range replay {
			select {
			case sink <- d:
			case <-quit:
				return nil
			}
		}
		for {
			select {
			case <-quit:
				return nil
			case err := <-sub.Err():
				return err
			case l := <-logs:
				if l.Removed {
					continue
				}
				d, err := DecodeReceived(l)
				if err != nil {
					continue
				}
				select {
				case sink <- d:
				case <-quit:
					return nil
				}
			}
		}
	})
}

func (r *Receiver) pollReceived(ctx context.Context, q ethereum.FilterQuery, sink chan<- entities.Delivery) (event.Subscription, error) {
	head, err := r.client.GetBlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	next := head + 1
	if r.replayBlocks > 0 {
		next = r.replayStart(head)
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(r.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			head, err := r.client.GetBlockNumber(ctx)
			if err != nil {
				logger.Warn(ctx, "Receiver poll: block number failed", zap.Error(err))
				continue
			}
			if head < next {
				continue
			}
			q.FromBlock = new(big.Int).SetUint64(next)
			q.ToBlock = new(big.Int).SetUint64(head)
			logs, err := r.client.FilterLogs(ctx, q)
			if err != nil {
				logger.Warn(ctx, "Receiver poll: get logs failed",
					zap.Uint64("from", next),
					zap.Uint64("to", head),
					zap.Error(err),
				)
				continue
			}
			next = head + 1

			for _, l := range logs {
				if l.Removed {
					continue
				}
				d, err := DecodeReceived(l)
				if err != nil {
					logger.Warn(ctx, "Receiver poll: undecodable log", zap.String("tx_hash", l.TxHash.Hex()), zap.Error(err))
					continue
				}
				select {
				case sink <- d:
				case <-quit:
					return nil
				}
			}
		}
	}), nil
}

// DecodeReceived decodes a Received log. The source chain is echoed exactly as delivered.
func DecodeReceived(l types.Log) (entities.Delivery, error) {
	if len(l.Topics) < 2 || l.Topics[0] != receivedTopic {
		return entities.Delivery{}, fmt.Errorf("log %s is not a Received event", l.TxHash.Hex())
	}
	out, err := receiverABI.Unpack("Received", l.Data)
	if err != nil {
		return entities.Delivery{}, fmt.Errorf("decode Received: %w", err)
	}
	amount, ok := out[0].(*big.Int)
	if !ok {
		return entities.Delivery{}, fmt.Errorf("decode Received: unexpected amount type %T", out[0])
	}
	sourceChain, _ := out[1].(string)

	return entities.Delivery{
		Recipient:   common.BytesToAddress(l.Topics[1].Bytes()),
		Amount:      amount,
		SourceChain: sourceChain,
		TxHash:      l.TxHash.Hex(),
		LogIndex:    l.Index,
		BlockNumber: l.BlockNumber,
	}, nil
}

package usecases

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/infrastructure/blockchain"
	"usdc-bridge.backend/pkg/logger"
)

// TokenReader is the read-only view of a token
type TokenReader interface {
	Address() common.Address
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// SourceToken is the signer-bound source-chain token
type SourceToken interface {
	TokenReader
	Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
}

// SenderContract is the source-chain bridge entry point
type SenderContract interface {
	Address() common.Address
	Bridge(ctx context.Context, destChain, destContract string, recipient common.Address, amount, value *big.Int) (common.Hash, error)
	BridgeWithERC20Gas(ctx context.Context, destChain, destContract string, recipient common.Address, amount, gasFee *big.Int, refund common.Address) (common.Hash, error)
}

// ReceiverContract is the observable side of the destination Receiver
type ReceiverContract interface {
	Address() common.Address
	WatchReceived(ctx context.Context, sink chan<- entities.Delivery) (event.Subscription, error)
}

// TxWaiter blocks until a transaction is mined
type TxWaiter interface {
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// HeadReader reports the latest block of a chain
type HeadReader interface {
	GetBlockNumber(ctx context.Context) (uint64, error)
}

// ContractSet holds every handle bound for one chain and signer.
// A nil *ContractSet is the null set used on unsupported chains.
// Sets are never mutated once built; a chain change replaces the whole set.
type ContractSet struct {
	ChainID     int64
	SourceToken SourceToken
	DestToken   TokenReader
	Sender      SenderContract
	Receiver    ReceiverContract
	Waiter      TxWaiter
	Head        HeadReader
}

// Addresses lists the bound contract addresses for display
func (s *ContractSet) Addresses() map[string]string {
	if s == nil {
		return nil
	}
	out := map[string]string{
		"sourceToken": s.SourceToken.Address().Hex(),
		"destToken":   s.DestToken.Address().Hex(),
		"sender":      s.Sender.Address().Hex(),
	}
	if s.Receiver != nil {
		out["receiver"] = s.Receiver.Address().Hex()
	}
	return out
}

// Binder builds a ContractSet for a chain
type Binder interface {
	Bind(ctx context.Context, signer blockchain.Signer, chainID int64) (*ContractSet, error)
}

// ContractBinder resolves handles from the static networks document.
// The source side uses the source chain endpoint; the destination token and
// receiver always go through the destination chain's own RPC endpoint.
type ContractBinder struct {
	networks        *config.Networks
	clients         *blockchain.ClientFactory
	logPollInterval time.Duration
	receiptInterval time.Duration
}

// NewContractBinder creates a binder over the given networks and client cache
func NewContractBinder(networks *config.Networks, clients *blockchain.ClientFactory, logPollInterval, receiptInterval time.Duration) *ContractBinder {
	return &ContractBinder{
		networks:        networks,
		clients:         clients,
		logPollInterval: logPollInterval,
		receiptInterval: receiptInterval,
	}
}

// Bind returns nil, nil when chainID is not a supported source.
func (b *ContractBinder) Bind(ctx context.Context, signer blockchain.Signer, chainID int64) (*ContractSet, error) {
	if !b.networks.IsSupportedSource(chainID) {
		return nil, nil
	}
	source, _ := b.networks.Chain(chainID)
	dest, ok := b.networks.Destination()
	if !ok {
		return nil, fmt.Errorf("bind: %w", domainerrors.ErrUnsupportedChain)
	}

	tokenAddr, err := requireAddress("source token", source.Token)
	if err != nil {
		return nil, err
	}
	senderAddr, err := requireAddress("sender", source.Sender)
	if err != nil {
		return nil, err
	}

	sourceClient, err := b.clients.ClientForChain(chainID, source.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("bind source chain %d: %w", chainID, err)
	}
	destClient, err := b.clients.ClientForChain(b.networks.Bridge.DestChainID, dest.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("bind destination chain %d: %w", b.networks.Bridge.DestChainID, err)
	}

	destTokenAddr, err := b.resolveDestToken(ctx, destClient, dest)
	if err != nil {
		return nil, err
	}

	set := &ContractSet{
		ChainID:     chainID,
		SourceToken: blockchain.NewERC20(sourceClient, tokenAddr, signer),
		DestToken:   blockchain.NewERC20(destClient, destTokenAddr, nil),
		Sender:      blockchain.NewSender(sourceClient, senderAddr, signer),
		Waiter:      blockchain.NewReceiptWaiter(sourceClient, b.receiptInterval),
		Head:        sourceClient,
	}
	if common.IsHexAddress(dest.Receiver) {
		receiver := blockchain.NewReceiver(destClient, common.HexToAddress(dest.Receiver), nil)
		receiver.SetPollInterval(b.logPollInterval)
		receiver.SetReplayBlocks(b.replayBlocks())
		set.Receiver = receiver
	}

	logger.Debug(ctx, "Contract set bound",
		zap.Int64("chain_id", chainID),
		zap.String("sender", senderAddr.Hex()),
		zap.String("dest_token", destTokenAddr.Hex()),
	)
	return set, nil
}

// replayBlocks is how far back a freshly bound receiver looks, one log chunk
// capped at the history lookback.
func (b *ContractBinder) replayBlocks() uint64 {
	n := b.networks.Bridge.LogChunkSize
	if lb := b.networks.Bridge.LookbackBlocks; lb < n {
		n = lb
	}
	return n
}

func (b *ContractBinder) resolveDestToken(ctx context.Context, client *blockchain.EVMClient, dest config.ChainConfig) (common.Address, error) {
	if common.IsHexAddress(dest.Token) {
		return common.HexToAddress(dest.Token), nil
	}
	gatewayAddr, err := requireAddress("destination gateway", dest.Gateway)
	if err != nil {
		return common.Address{}, err
	}
	addr, symbol, err := blockchain.NewGateway(client, gatewayAddr).ResolveToken(ctx, b.networks.Bridge.TokenSymbols)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolve destination token: %w", err)
	}
	logger.Debug(ctx, "Destination token resolved through gateway", zap.String("symbol", symbol), zap.String("token", addr.Hex()))
	return addr, nil
}

func requireAddress(label, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) || common.HexToAddress(raw) == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%s address %q: %w", label, raw, domainerrors.ErrInvalidAddress)
	}
	return common.HexToAddress(raw), nil
}

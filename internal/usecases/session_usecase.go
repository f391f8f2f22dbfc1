package usecases

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/infrastructure/blockchain"
	"usdc-bridge.backend/pkg/logger"
	"usdc-bridge.backend/pkg/metrics"
)

// WalletProvider is the wallet the session is bound to
type WalletProvider interface {
	blockchain.Signer
	Account() (common.Address, bool)
	Accounts() []common.Address
	ChainID() int64
	SwitchChain(chainID int64)
	SwitchAccount(account common.Address) error
	SubscribeEvents(ch chan<- blockchain.WalletEvent) event.Subscription
}

// DeliveryDeduper claims a delivery key the first time it is seen
type DeliveryDeduper interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// DeliveryHandler consumes a delivery and reports whether it completed a request
type DeliveryHandler func(ctx context.Context, d entities.Delivery) bool

// SessionUsecase owns the network and account binding. Every wallet event
// replaces the binding, the contract set and the balances as one snapshot.
type SessionUsecase struct {
	wallet   WalletProvider
	binder   Binder
	balances *BalanceReader
	networks *config.Networks
	dedupe   DeliveryDeduper
	decimals int

	rebindMu  sync.Mutex
	stopWatch func()

	mu        sync.RWMutex
	snap      SessionSnapshot
	lastBlock uint64
	onDeliver DeliveryHandler
	baseCtx   context.Context
	walletSub event.Subscription
	done      chan struct{}
}

// NewSessionUsecase creates an unbound session. Call Start to bind and follow wallet events.
func NewSessionUsecase(wallet WalletProvider, binder Binder, balances *BalanceReader, networks *config.Networks, dedupe DeliveryDeduper) *SessionUsecase {
	decimals := networks.Bridge.TokenDecimals
	if decimals <= 0 {
		decimals = TokenDecimals
	}
	return &SessionUsecase{
		wallet:    wallet,
		binder:    binder,
		balances:  balances,
		networks:  networks,
		dedupe:    dedupe,
		decimals:  decimals,
		stopWatch: func() {},
		snap:      SessionSnapshot{Balances: ZeroBalances(decimals)},
		baseCtx:   context.Background(),
	}
}

// HandleDeliveries sets where deliveries observed on the destination go
func (s *SessionUsecase) HandleDeliveries(fn DeliveryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDeliver = fn
}

// Snapshot returns the current session state
func (s *SessionUsecase) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Start binds to the wallet's current chain and rebinds on every wallet event until Stop
func (s *SessionUsecase) Start(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	events := make(chan blockchain.WalletEvent, 8)
	sub := s.wallet.SubscribeEvents(events)
	done := make(chan struct{})

	s.mu.Lock()
	s.baseCtx = ctx
	s.walletSub = sub
	s.done = done
	s.mu.Unlock()

	if err := s.Rebind(ctx); err != nil {
		logger.Warn(ctx, "Initial contract binding failed", zap.Error(err))
	}

	go func() {
		defer close(done)
		for {
			select {
			case ev := <-events:
				logger.Info(ctx, "Wallet event",
					zap.String("kind", string(ev.Kind)),
					zap.Int64("chain_id", ev.ChainID),
					zap.String("account", ev.Account.Hex()),
				)
				if err := s.Rebind(ctx); err != nil {
					logger.Warn(ctx, "Contract rebinding failed", zap.Error(err))
				}
			case err, ok := <-sub.Err():
				if ok && err != nil {
					logger.Error(ctx, "Wallet event subscription ended", zap.Error(err))
				}
				return
			}
		}
	}()
	return nil
}

// Stop tears down the wallet and delivery subscriptions
func (s *SessionUsecase) Stop() {
	s.mu.Lock()
	sub, done := s.walletSub, s.done
	s.walletSub, s.done = nil, nil
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		<-done
	}

	s.rebindMu.Lock()
	s.stopWatch()
	s.stopWatch = func() {}
	s.rebindMu.Unlock()
}

// Rebind recomputes the chain binding and replaces the contract set.
// The old delivery watch is torn down before the new set is published.
func (s *SessionUsecase) Rebind(ctx context.Context) error {
	s.rebindMu.Lock()
	defer s.rebindMu.Unlock()

	s.stopWatch()
	s.stopWatch = func() {}

	chainID := s.wallet.ChainID()
	account, connected := s.wallet.Account()
	binding := entities.ChainBinding{ChainID: chainID, IsSupportedSource: s.networks.IsSupportedSource(chainID)}

	var (
		set     *ContractSet
		bindErr error
	)
	if binding.IsSupportedSource {
		set, bindErr = s.binder.Bind(ctx, s.wallet, chainID)
		if bindErr != nil {
			set = nil
		}
	}

	s.mu.Lock()
	s.snap = SessionSnapshot{
		Connected:  connected,
		Account:    account,
		Binding:    binding,
		Contracts:  set,
		Balances:   ZeroBalances(s.decimals),
		Generation: s.snap.Generation + 1,
	}
	s.lastBlock = 0
	s.mu.Unlock()

	switch {
	case bindErr != nil:
		metrics.RecordRebind("error")
		logger.Error(ctx, "Contract binding failed", zap.Int64("chain_id", chainID), zap.Error(bindErr))
		return fmt.Errorf("bind chain %d: %w", chainID, bindErr)
	case set == nil:
		metrics.RecordRebind("unsupported")
		logger.Info(ctx, "Wallet is on an unsupported chain, contracts cleared", zap.Int64("chain_id", chainID))
		return nil
	}
	metrics.RecordRebind("bound")

	s.stopWatch = WatchDeliveries(ctx, set.Receiver, func(d entities.Delivery) {
		s.handleDelivery(ctx, d)
	})
	if connected {
		if _, err := s.RefreshBalances(ctx); err != nil {
			logger.Warn(ctx, "Balance refresh after rebind failed", zap.Error(err))
		}
	}
	return nil
}

// RefreshBalances reads both balances for the current set and account.
// A result that arrives after the set was replaced is dropped.
func (s *SessionUsecase) RefreshBalances(ctx context.Context) (entities.Balances, error) {
	snap := s.Snapshot()
	if !snap.Connected {
		return snap.Balances, domainerrors.ErrWalletNotConnected
	}
	if snap.Contracts == nil {
		return snap.Balances, domainerrors.ErrContractsUnavailable
	}

	balances, err := s.balances.Refresh(ctx, snap.Contracts, snap.Account)
	if err != nil {
		metrics.RecordBalanceRefreshError()
		logger.Warn(ctx, "Balance refresh failed",
			zap.Int64("chain_id", snap.Binding.ChainID),
			zap.String("account", snap.Account.Hex()),
			zap.Error(err),
		)
		return snap.Balances, err
	}

	s.mu.Lock()
	if s.snap.Generation != snap.Generation {
		s.mu.Unlock()
		logger.Debug(ctx, "Dropping balances read against a replaced contract set", zap.Int64("chain_id", snap.Binding.ChainID))
		return balances, domainerrors.ErrStaleContracts
	}
	next := s.snap
	next.Balances = balances
	s.snap = next
	s.mu.Unlock()
	return balances, nil
}

// OnSignal refreshes balances after the approve and send steps
func (s *SessionUsecase) OnSignal(sig entities.Signal) {
	switch sig.Kind {
	case entities.SignalApproved, entities.SignalSent, entities.SignalReceived:
	default:
		return
	}
	s.mu.RLock()
	ctx := s.baseCtx
	s.mu.RUnlock()
	go func() {
		_, _ = s.RefreshBalances(ctx)
	}()
}

// PollHead refreshes balances when the source chain has advanced since the last poll
func (s *SessionUsecase) PollHead(ctx context.Context) error {
	snap := s.Snapshot()
	if snap.Contracts == nil || snap.Contracts.Head == nil || !snap.Connected {
		return nil
	}
	head, err := snap.Contracts.Head.GetBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("read source head: %w", err)
	}

	s.mu.Lock()
	if s.snap.Generation != snap.Generation || head <= s.lastBlock {
		s.mu.Unlock()
		return nil
	}
	s.lastBlock = head
	s.mu.Unlock()

	logger.Debug(ctx, "New source block", zap.Uint64("block", head))
	_, err = s.RefreshBalances(ctx)
	return err
}

// SwitchNetwork asks the wallet to change chain; the rebind follows from its event
func (s *SessionUsecase) SwitchNetwork(chainID int64) error {
	if chainID <= 0 {
		return domainerrors.BadRequest("chainId must be positive")
	}
	s.wallet.SwitchChain(chainID)
	return nil
}

// SwitchAccount asks the wallet to change the active account
func (s *SessionUsecase) SwitchAccount(raw string) error {
	if !common.IsHexAddress(raw) {
		return domainerrors.BadRequest("invalid account address")
	}
	if err := s.wallet.SwitchAccount(common.HexToAddress(raw)); err != nil {
		return domainerrors.NewAppError(http.StatusNotFound, domainerrors.CodeNotFound, "account is not managed by the wallet", err)
	}
	return nil
}

// Accounts lists every account the wallet can sign for
func (s *SessionUsecase) Accounts() []common.Address {
	return s.wallet.Accounts()
}

func (s *SessionUsecase) handleDelivery(ctx context.Context, d entities.Delivery) {
	if s.dedupe != nil {
		claimed, err := s.dedupe.Claim(ctx, fmt.Sprintf("%s:%d", d.TxHash, d.LogIndex))
		if err != nil {
			logger.Warn(ctx, "Delivery dedupe unavailable, handling anyway", zap.String("tx_hash", d.TxHash), zap.Error(err))
		} else if !claimed {
			logger.Debug(ctx, "Delivery already handled", zap.String("tx_hash", d.TxHash))
			return
		}
	}

	logger.Info(ctx, "Delivery observed on destination",
		zap.String("recipient", d.Recipient.Hex()),
		zap.String("amount", d.Amount.String()),
		zap.String("source_chain", d.SourceChain),
		zap.String("tx_hash", d.TxHash),
	)

	s.mu.RLock()
	handler := s.onDeliver
	s.mu.RUnlock()
	if handler != nil {
		handler(ctx, d)
	}
}

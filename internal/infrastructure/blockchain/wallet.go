package blockchain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	domainerrors "usdc-bridge.backend/internal/domain/errors"
)

// WalletEventKind mirrors the provider events a browser wallet raises
type WalletEventKind string

const (
	ChainChanged    WalletEventKind = "chainChanged"
	AccountsChanged WalletEventKind = "accountsChanged"
)

// WalletEvent is raised whenever the active chain or account changes
type WalletEvent struct {
	Kind    WalletEventKind
	ChainID int64
	Account common.Address
}

var newKeyedTransactor = bind.NewKeyedTransactorWithChainID

// KeyedWallet signs with locally held keys and plays the wallet provider role:
// it reports the active chain and account and raises change events.
type KeyedWallet struct {
	mu      sync.RWMutex
	keys    map[common.Address]*ecdsa.PrivateKey
	order   []common.Address
	account common.Address
	chainID int64
	feed    event.Feed
}

// NewKeyedWallet loads hex private keys. The first key becomes the active account.
// No keys means a disconnected wallet.
func NewKeyedWallet(hexKeys []string, chainID int64) (*KeyedWallet, error) {
	w := &KeyedWallet{
		keys:    make(map[common.Address]*ecdsa.PrivateKey),
		chainID: chainID,
	}
	for i, raw := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
		if err != nil {
			return nil, fmt.Errorf("wallet key %d: %w", i, err)
		}
		addr := crypto.PubkeyToAddress(key.PublicKey)
		if _, dup := w.keys[addr]; dup {
			continue
		}
		w.keys[addr] = key
		w.order = append(w.order, addr)
	}
	if len(w.order) > 0 {
		w.account = w.order[0]
	}
	return w, nil
}

// Connected reports whether an account is available
func (w *KeyedWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order) > 0
}

// Account returns the active account
func (w *KeyedWallet) Account() (common.Address, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.account, len(w.order) > 0
}

// Accounts lists every managed account in load order
func (w *KeyedWallet) Accounts() []common.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]common.Address(nil), w.order...)
}

// ChainID returns the active chain
func (w *KeyedWallet) ChainID() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

// SwitchChain changes the active chain and raises chainChanged
func (w *KeyedWallet) SwitchChain(chainID int64) {
	w.mu.Lock()
	if w.chainID == chainID {
		w.mu.Unlock()
		return
	}
	w.chainID = chainID
	ev := WalletEvent{Kind: ChainChanged, ChainID: chainID, Account: w.account}
	w.mu.Unlock()

	w.feed.Send(ev)
}

// SwitchAccount changes the active account and raises accountsChanged
func (w *KeyedWallet) SwitchAccount(account common.Address) error {
	w.mu.Lock()
	if _, ok := w.keys[account]; !ok {
		w.mu.Unlock()
		return domainerrors.ErrAccountNotFound
	}
	if w.account == account {
		w.mu.Unlock()
		return nil
	}
	w.account = account
	ev := WalletEvent{Kind: AccountsChanged, ChainID: w.chainID, Account: account}
	w.mu.Unlock()

	w.feed.Send(ev)
	return nil
}

// SubscribeEvents delivers wallet events into ch until unsubscribed.
// Send blocks until every subscriber receives, so ch must be drained.
func (w *KeyedWallet) SubscribeEvents(ch chan<- WalletEvent) event.Subscription {
	return w.feed.Subscribe(ch)
}

// TransactOpts signs for the active account on the active chain
func (w *KeyedWallet) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	w.mu.RLock()
	key, ok := w.keys[w.account]
	chainID := w.chainID
	w.mu.RUnlock()
	if !ok {
		return nil, domainerrors.ErrWalletNotConnected
	}

	opts, err := newKeyedTransactor(key, big.NewInt(chainID))
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

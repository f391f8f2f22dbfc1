package blockchain

import (
	"errors"
	"fmt"
	"sync"
)

// ErrChainMismatch is returned when an RPC endpoint serves a different chain than configured
var ErrChainMismatch = errors.New("rpc endpoint serves an unexpected chain")

var beforeDialHook = func(string) {}

// ClientFactory keeps one EVM client per RPC URL so rebinding
// on every chain switch does not redial.
type ClientFactory struct {
	mu      sync.RWMutex
	clients map[string]*EVMClient
}

// NewClientFactory creates an empty factory
func NewClientFactory() *ClientFactory {
	return &ClientFactory{clients: make(map[string]*EVMClient)}
}

// GetEVMClient returns the cached client for rpcURL, dialing it on first use
func (f *ClientFactory) GetEVMClient(rpcURL string) (*EVMClient, error) {
	f.mu.RLock()
	client, ok := f.clients[rpcURL]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	beforeDialHook(rpcURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	// another caller may have dialed while we waited
	if client, ok := f.clients[rpcURL]; ok {
		return client, nil
	}

	client, err := NewEVMClient(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create EVM client: %w", err)
	}
	f.clients[rpcURL] = client
	return client, nil
}

// ClientForChain returns the client for rpcURL and checks it reports chainID
func (f *ClientFactory) ClientForChain(chainID int64, rpcURL string) (*EVMClient, error) {
	client, err := f.GetEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}
	if got := client.ChainID().Int64(); got != chainID {
		return nil, fmt.Errorf("%w: %s serves chain %d, expected %d", ErrChainMismatch, rpcURL, got, chainID)
	}
	return client, nil
}

// RegisterEVMClient installs a client for rpcURL, replacing any cached one
func (f *ClientFactory) RegisterEVMClient(rpcURL string, client *EVMClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[rpcURL] = client
}

// Close closes and forgets every cached client
func (f *ClientFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, client := range f.clients {
		client.Close()
		delete(f.clients, url)
	}
}

package usecases

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/pkg/logger"
	"usdc-bridge.backend/pkg/metrics"
)

// SignalListener receives lifecycle signals. It runs on the emitting goroutine.
type SignalListener func(entities.Signal)

type listenerEntry struct {
	id uint64
	fn SignalListener
}

// Notifier broadcasts lifecycle signals. Emitting with no listener is fine;
// a panicking listener is logged and never reaches the emitter.
type Notifier struct {
	networks *config.Networks

	mu        sync.RWMutex
	listeners []listenerEntry
	nextID    uint64
}

// NewNotifier creates a notifier building links from the networks document
func NewNotifier(networks *config.Networks) *Notifier {
	return &Notifier{networks: networks}
}

// Subscribe registers fn and returns its unsubscribe. Unsubscribe is idempotent.
func (n *Notifier) Subscribe(fn SignalListener) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.listeners = append(n.listeners, listenerEntry{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, l := range n.listeners {
				if l.id == id {
					n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit fills in the link for sig and delivers it to every listener in subscription order.
// sourceChainID selects the explorer for source-side signals.
func (n *Notifier) Emit(ctx context.Context, sig entities.Signal, sourceChainID int64) {
	if sig.Link == "" && sig.TxHash != "" {
		sig.Link = n.Link(sig.Kind, sourceChainID, sig.TxHash)
	}
	metrics.RecordSignal(string(sig.Kind))

	n.mu.RLock()
	listeners := append([]listenerEntry(nil), n.listeners...)
	n.mu.RUnlock()

	for _, l := range listeners {
		n.deliver(ctx, l, sig)
	}
}

func (n *Notifier) deliver(ctx context.Context, l listenerEntry, sig entities.Signal) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordListenerPanic()
			logger.Error(ctx, "Signal listener panicked",
				zap.String("kind", string(sig.Kind)),
				zap.Any("panic", r),
			)
		}
	}()
	l.fn(sig)
}

// Link returns the human-followable URL for a signal's transaction
func (n *Notifier) Link(kind entities.SignalKind, sourceChainID int64, txHash string) string {
	if n.networks == nil || txHash == "" {
		return ""
	}
	switch kind {
	case entities.SignalRelaying:
		return expandLink(n.networks.Bridge.RelayTxURL, txHash)
	case entities.SignalReceived:
		dest, ok := n.networks.Destination()
		if !ok {
			return ""
		}
		return expandLink(dest.ExplorerTxURL, txHash)
	default:
		chain, ok := n.networks.Chain(sourceChainID)
		if !ok {
			return ""
		}
		return expandLink(chain.ExplorerTxURL, txHash)
	}
}

func expandLink(template, txHash string) string {
	if template == "" {
		return ""
	}
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, txHash)
	}
	return strings.TrimRight(template, "/") + "/" + txHash
}

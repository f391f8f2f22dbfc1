package usecases

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/pkg/logger"
	"usdc-bridge.backend/pkg/metrics"
)

// WatchDeliveries forwards every Received event of receiver to onDelivered,
// whatever recipient it names. A nil receiver yields a no-op unsubscribe.
// The returned unsubscribe may be called any number of times.
func WatchDeliveries(ctx context.Context, receiver ReceiverContract, onDelivered func(entities.Delivery)) func() {
	if receiver == nil || onDelivered == nil {
		return func() {}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	sink := make(chan entities.Delivery, 16)
	sub, err := receiver.WatchReceived(watchCtx, sink)
	if err != nil {
		cancel()
		logger.Error(ctx, "Delivery watch failed to start",
			zap.String("receiver", receiver.Address().Hex()),
			zap.Error(err),
		)
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case d := <-sink:
				deliverSafely(watchCtx, d, onDelivered)
			case err, ok := <-sub.Err():
				if ok && err != nil && !errors.Is(err, context.Canceled) {
					logger.Error(watchCtx, "Delivery subscription ended", zap.Error(err))
				}
				return
			case <-watchCtx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.Unsubscribe()
			<-done
		})
	}
}

func deliverSafely(ctx context.Context, d entities.Delivery, onDelivered func(entities.Delivery)) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordListenerPanic()
			logger.Error(ctx, "Delivery listener panicked", zap.String("tx_hash", d.TxHash), zap.Any("panic", r))
		}
	}()
	onDelivered(d)
}

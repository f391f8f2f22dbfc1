package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/pkg/logger"
)

// HeadPoller refreshes derived state when the chain head moves
type HeadPoller interface {
	PollHead(ctx context.Context) error
}

// BlockWatchJob polls the source chain head and refreshes balances on new blocks
type BlockWatchJob struct {
	poller   HeadPoller
	interval time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

func NewBlockWatchJob(poller HeadPoller, interval time.Duration) *BlockWatchJob {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &BlockWatchJob{
		poller:   poller,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

func (j *BlockWatchJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting block watch job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Block watch job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Block watch job stopped")
			return
		case <-ticker.C:
			j.poll(ctx)
		}
	}
}

func (j *BlockWatchJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
}

func (j *BlockWatchJob) poll(ctx context.Context) {
	err := j.poller.PollHead(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domainerrors.ErrStaleContracts), errors.Is(err, context.Canceled):
		// a rebind or shutdown raced the poll
	default:
		logger.Warn(ctx, "Block watch poll failed", zap.Error(err))
	}
}

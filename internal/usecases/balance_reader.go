package usecases

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
)

// BalanceReader reads both token balances together.
// Overlapping refreshes for the same set and account share one round trip.
type BalanceReader struct {
	group    singleflight.Group
	decimals int
	now      func() time.Time
}

// NewBalanceReader creates a reader formatting at the token's decimals
func NewBalanceReader(decimals int) *BalanceReader {
	if decimals <= 0 {
		decimals = TokenDecimals
	}
	return &BalanceReader{decimals: decimals, now: time.Now}
}

// Refresh reads source and destination balances. Either both are returned or neither.
func (r *BalanceReader) Refresh(ctx context.Context, set *ContractSet, account common.Address) (entities.Balances, error) {
	if set == nil {
		return entities.Balances{}, domainerrors.ErrContractsUnavailable
	}
	key := fmt.Sprintf("%d:%s:%p", set.ChainID, account.Hex(), set)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		source, err := set.SourceToken.BalanceOf(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("source balance: %w", err)
		}
		dest, err := set.DestToken.BalanceOf(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("destination balance: %w", err)
		}
		return entities.Balances{
			Source:    FormatUnits(source, r.decimals),
			Dest:      FormatUnits(dest, r.decimals),
			SourceRaw: source,
			DestRaw:   dest,
			UpdatedAt: r.now(),
		}, nil
	})
	if err != nil {
		return entities.Balances{}, err
	}
	return v.(entities.Balances), nil
}

// ZeroBalances is what the session shows before a set is bound or after it is dropped
func ZeroBalances(decimals int) entities.Balances {
	return entities.Balances{
		Source:    FormatUnits(nil, decimals),
		Dest:      FormatUnits(nil, decimals),
		SourceRaw: new(big.Int),
		DestRaw:   new(big.Int),
	}
}

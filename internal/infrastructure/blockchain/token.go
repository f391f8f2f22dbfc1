package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ERC20 is a handle on a fungible token. Without a signer it is a read-only mirror.
type ERC20 struct {
	*boundContract
}

// NewERC20 binds a token handle at address
func NewERC20(client *EVMClient, address common.Address, signer Signer) *ERC20 {
	return &ERC20{boundContract: newBoundContract(client, address, erc20ABI, signer)}
}

// BalanceOf reads owner's balance
func (t *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	return callTyped[*big.Int](ctx, t.boundContract, "balanceOf", owner)
}

// Allowance reads how much spender may pull from owner
func (t *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	return callTyped[*big.Int](ctx, t.boundContract, "allowance", owner, spender)
}

// Approve sets spender's allowance to exactly amount
func (t *ERC20) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	return t.transact(ctx, nil, "approve", spender, amount)
}

// Decimals reads the token's declared precision
func (t *ERC20) Decimals(ctx context.Context) (uint8, error) {
	return callTyped[uint8](ctx, t.boundContract, "decimals")
}

// Symbol reads the token symbol
func (t *ERC20) Symbol(ctx context.Context) (string, error) {
	return callTyped[string](ctx, t.boundContract, "symbol")
}

package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrReadOnly is returned when a write is issued through a handle without a signer
var ErrReadOnly = errors.New("contract handle is read-only")

// Signer supplies transaction options for the active account
type Signer interface {
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

var transactContract = func(contract *bind.BoundContract, opts *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
	return contract.Transact(opts, method, args...)
}

// boundContract is the shared plumbing behind every typed handle.
// A handle is tied to exactly one client, and so to one chain.
type boundContract struct {
	address  common.Address
	abi      abi.ABI
	client   *EVMClient
	signer   Signer
	contract *bind.BoundContract
}

func newBoundContract(client *EVMClient, address common.Address, parsed abi.ABI, signer Signer) *boundContract {
	var contract *bind.BoundContract
	if backend := client.Backend(); backend != nil {
		contract = bind.NewBoundContract(address, parsed, backend, backend, backend)
	}
	return &boundContract{
		address:  address,
		abi:      parsed,
		client:   client,
		signer:   signer,
		contract: contract,
	}
}

// Address returns the contract address
func (b *boundContract) Address() common.Address {
	return b.address
}

// ChainID returns the chain the handle is bound to
func (b *boundContract) ChainID() int64 {
	return b.client.ChainID().Int64()
}

func (b *boundContract) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := b.client.CallView(ctx, b.address.Hex(), data)
	if err != nil {
		return nil, err
	}
	return b.abi.Unpack(method, out)
}

func (b *boundContract) transact(ctx context.Context, value *big.Int, method string, args ...interface{}) (common.Hash, error) {
	if b.signer == nil || b.contract == nil {
		return common.Hash{}, ErrReadOnly
	}
	opts, err := b.signer.TransactOpts(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	if value != nil {
		opts.Value = new(big.Int).Set(value)
	}
	tx, err := transactContract(b.contract, opts, method, args...)
	if err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func callTyped[T any](ctx context.Context, b *boundContract, method string, args ...interface{}) (T, error) {
	var zero T
	out, err := b.call(ctx, method, args...)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, fmt.Errorf("%s: empty result", method)
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", method, out[0])
	}
	return v, nil
}

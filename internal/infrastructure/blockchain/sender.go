package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotBridgeCall is returned when calldata does not target a Sender entry point
var ErrNotBridgeCall = errors.New("calldata is not a bridge call")

// Sender is a signer-bound handle on the source-chain Sender contract
type Sender struct {
	*boundContract
}

// NewSender binds a Sender handle at address
func NewSender(client *EVMClient, address common.Address, signer Signer) *Sender {
	return &Sender{boundContract: newBoundContract(client, address, senderABI, signer)}
}

// Bridge sends amount to recipient on destChain, prepaying relay gas with value
func (s *Sender) Bridge(ctx context.Context, destChain, destContract string, recipient common.Address, amount, value *big.Int) (common.Hash, error) {
	return s.transact(ctx, value, "bridge", destChain, destContract, recipient, amount)
}

// BridgeWithERC20Gas sends amount and pays relay gas in the bridged token. Carries no value.
func (s *Sender) BridgeWithERC20Gas(ctx context.Context, destChain, destContract string, recipient common.Address, amount, gasFee *big.Int, refund common.Address) (common.Hash, error) {
	return s.transact(ctx, nil, "bridgeWithERC20Gas", destChain, destContract, recipient, amount, gasFee, refund)
}

// Token reads the bridged token fixed at deploy time
func (s *Sender) Token(ctx context.Context) (common.Address, error) {
	return callTyped[common.Address](ctx, s.boundContract, "token")
}

// BridgeCall is a decoded Sender invocation
type BridgeCall struct {
	Method       string         `json:"method"`
	DestChain    string         `json:"destChain"`
	DestContract string         `json:"destContract"`
	Recipient    common.Address `json:"recipient"`
	Amount       *big.Int       `json:"amount"`
	GasFee       *big.Int       `json:"gasFee,omitempty"`
	Refund       common.Address `json:"refundAddress,omitempty"`
}

// DecodeBridgeCall decodes transaction input sent to a Sender
func DecodeBridgeCall(data []byte) (*BridgeCall, error) {
	if len(data) < 4 {
		return nil, ErrNotBridgeCall
	}
	method, err := senderABI.MethodById(data[:4])
	if err != nil {
		return nil, ErrNotBridgeCall
	}
	if method.Name != "bridge" && method.Name != "bridgeWithERC20Gas" {
		return nil, ErrNotBridgeCall
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", method.Name, err)
	}

	call := &BridgeCall{
		Method:       method.Name,
		DestChain:    args[0].(string),
		DestContract: args[1].(string),
		Recipient:    args[2].(common.Address),
		Amount:       args[3].(*big.Int),
	}
	if method.Name == "bridgeWithERC20Gas" {
		call.GasFee = args[4].(*big.Int)
		call.Refund = args[5].(common.Address)
	}
	return call, nil
}

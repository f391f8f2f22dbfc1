package blockchain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Gateway is a read-only handle on the relay network's gateway
type Gateway struct {
	*boundContract
}

// NewGateway binds a Gateway handle at address
func NewGateway(client *EVMClient, address common.Address) *Gateway {
	return &Gateway{boundContract: newBoundContract(client, address, gatewayABI, nil)}
}

// TokenAddress resolves a token symbol through the gateway registry
func (g *Gateway) TokenAddress(ctx context.Context, symbol string) (common.Address, error) {
	return callTyped[common.Address](ctx, g.boundContract, "tokenAddresses", symbol)
}

// ResolveToken returns the first symbol the gateway knows, in order
func (g *Gateway) ResolveToken(ctx context.Context, symbols []string) (common.Address, string, error) {
	for _, symbol := range symbols {
		addr, err := g.TokenAddress(ctx, symbol)
		if err != nil {
			return common.Address{}, "", err
		}
		if addr != (common.Address{}) {
			return addr, symbol, nil
		}
	}
	return common.Address{}, "", fmt.Errorf("gateway has no token for %v", symbols)
}

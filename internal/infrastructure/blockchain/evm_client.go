package blockchain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNoConnection is returned by RPC methods of a client built without an endpoint
var ErrNoConnection = errors.New("evm client has no rpc connection")

var (
	dialEVMClient    = ethclient.Dial
	getClientChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}
)

// EVMClient provides EVM blockchain interaction for one RPC endpoint
type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int
	rpcURL  string
	// testCallView allows deterministic unit tests without network sockets.
	testCallView func(ctx context.Context, to string, data []byte) ([]byte, error)
}

// NewEVMClient dials rpcURL and resolves its chain id
func NewEVMClient(rpcURL string) (*EVMClient, error) {
	client, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := getClientChainID(client, context.Background())
	if err != nil {
		return nil, err
	}

	return &EVMClient{
		client:  client,
		chainID: chainID,
		rpcURL:  rpcURL,
	}, nil
}

// NewEVMClientWithCallView creates an EVM client that uses an injected CallView implementation.
// Handles built on it are read-only.
func NewEVMClientWithCallView(chainID *big.Int, callViewFn func(ctx context.Context, to string, data []byte) ([]byte, error)) *EVMClient {
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	return &EVMClient{
		chainID:      chainID,
		testCallView: callViewFn,
	}
}

// ChainID returns the chain ID
func (c *EVMClient) ChainID() *big.Int {
	return c.chainID
}

// RPCURL returns the endpoint the client was dialed with
func (c *EVMClient) RPCURL() string {
	return c.rpcURL
}

// Backend exposes the client to go-ethereum's contract binding.
// Nil when the client was built with an injected CallView.
func (c *EVMClient) Backend() bind.ContractBackend {
	if c.client == nil {
		return nil
	}
	return c.client
}

// GetBalance gets the native balance of an address
func (c *EVMClient) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	return eth.BalanceAt(ctx, address, nil)
}

// GetTransaction gets transaction details
func (c *EVMClient) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, false, err
	}
	return eth.TransactionByHash(ctx, hash)
}

// GetTransactionReceipt gets transaction receipt. Returns ethereum.NotFound while pending.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	return eth.TransactionReceipt(ctx, hash)
}

// GetBlockNumber gets the latest block number
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	eth, err := c.eth()
	if err != nil {
		return 0, err
	}
	return eth.BlockNumber(ctx)
}

// GetHeader gets a block header; nil number means latest
func (c *EVMClient) GetHeader(ctx context.Context, number *big.Int) (*types.Header, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	return eth.HeaderByNumber(ctx, number)
}

// GetCode returns the deployed bytecode at address
func (c *EVMClient) GetCode(ctx context.Context, address common.Address) ([]byte, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	return eth.CodeAt(ctx, address, nil)
}

// FilterLogs runs an eth_getLogs query
func (c *EVMClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	return eth.FilterLogs(ctx, q)
}

// SubscribeFilterLogs opens a log subscription. Fails on plain HTTP endpoints.
func (c *EVMClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	return eth.SubscribeFilterLogs(ctx, q, ch)
}

// CallView executes a read-only contract call
func (c *EVMClient) CallView(ctx context.Context, to string, data []byte) ([]byte, error) {
	if c.testCallView != nil {
		return c.testCallView(ctx, to, data)
	}
	eth, err := c.eth()
	if err != nil {
		return nil, err
	}
	addr := common.HexToAddress(to)
	return eth.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
}

func (c *EVMClient) eth() (*ethclient.Client, error) {
	if c.client == nil {
		return nil, ErrNoConnection
	}
	return c.client, nil
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

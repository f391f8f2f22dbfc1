package blockchain

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"usdc-bridge.backend/internal/domain/entities"
)

type legacySigner struct {
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

func newLegacySigner(t *testing.T) *legacySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &legacySigner{key: key, chainID: big.NewInt(11155111)}
}

func (s *legacySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.GasPrice = big.NewInt(1_000_000_000)
	opts.GasLimit = 300_000
	opts.Nonce = big.NewInt(0)
	return opts, nil
}

func word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func TestERC20_Reads(t *testing.T) {
	owner := common.HexToAddress(testFrom)
	spender := common.HexToAddress(testContract)
	client := NewEVMClientWithCallView(big.NewInt(43113), func(_ context.Context, to string, data []byte) ([]byte, error) {
		method, err := erc20ABI.MethodById(data[:4])
		require.NoError(t, err)
		switch method.Name {
		case "balanceOf":
			return word(big.NewInt(1_000_000_000)), nil
		case "allowance":
			args, err := method.Inputs.Unpack(data[4:])
			require.NoError(t, err)
			require.Equal(t, owner, args[0])
			require.Equal(t, spender, args[1])
			return word(big.NewInt(5)), nil
		case "decimals":
			return word(big.NewInt(6)), nil
		case "symbol":
			return method.Outputs.Pack("aUSDC")
		}
		return nil, errors.New("unexpected call")
	})

	token := NewERC20(client, common.HexToAddress("0x5555555555555555555555555555555555555555"), nil)
	ctx := context.Background()

	bal, err := token.BalanceOf(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, "1000000000", bal.String())

	allowance, err := token.Allowance(ctx, owner, spender)
	require.NoError(t, err)
	require.Equal(t, int64(5), allowance.Int64())

	dec, err := token.Decimals(ctx)
	require.NoError(t, err)
	require.Equal(t, uint8(6), dec)

	sym, err := token.Symbol(ctx)
	require.NoError(t, err)
	require.Equal(t, "aUSDC", sym)

	require.Equal(t, int64(43113), token.ChainID())

	_, err = token.Approve(ctx, spender, big.NewInt(1))
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestERC20_ReadErrors(t *testing.T) {
	client := NewEVMClientWithCallView(nil, func(context.Context, string, []byte) ([]byte, error) {
		return nil, errors.New("rpc down")
	})
	token := NewERC20(client, common.Address{}, nil)
	_, err := token.BalanceOf(context.Background(), common.Address{})
	require.EqualError(t, err, "rpc down")

	empty := NewEVMClientWithCallView(nil, func(context.Context, string, []byte) ([]byte, error) {
		return []byte{}, nil
	})
	_, err = NewERC20(empty, common.Address{}, nil).BalanceOf(context.Background(), common.Address{})
	require.Error(t, err)
}

func TestERC20_Approve_SendsSignedTransaction(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	tokenAddr := common.HexToAddress("0x5555555555555555555555555555555555555555")
	spender := common.HexToAddress(testContract)
	token := NewERC20(client, tokenAddr, newLegacySigner(t))

	hash, err := token.Approve(context.Background(), spender, big.NewInt(123))
	require.NoError(t, err)

	sent := rpc.sentTxs()
	require.Len(t, sent, 1)
	require.Equal(t, hash, sent[0].Hash())
	require.Equal(t, tokenAddr, *sent[0].To())

	method, err := erc20ABI.MethodById(sent[0].Data()[:4])
	require.NoError(t, err)
	require.Equal(t, "approve", method.Name)
	args, err := method.Inputs.Unpack(sent[0].Data()[4:])
	require.NoError(t, err)
	require.Equal(t, spender, args[0])
	require.Equal(t, int64(123), args[1].(*big.Int).Int64())
}

func TestSender_Bridge_NativeGas(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	senderAddr := common.HexToAddress("0x6666666666666666666666666666666666666666")
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")
	sender := NewSender(client, senderAddr, newLegacySigner(t))

	gas := big.NewInt(10_000_000_000_000_000)
	_, err = sender.Bridge(context.Background(), "Avalanche", "0xabc", recipient, big.NewInt(123_000_000), gas)
	require.NoError(t, err)

	sent := rpc.sentTxs()
	require.Len(t, sent, 1)
	require.Equal(t, gas, sent[0].Value())

	call, err := DecodeBridgeCall(sent[0].Data())
	require.NoError(t, err)
	require.Equal(t, "bridge", call.Method)
	require.Equal(t, "Avalanche", call.DestChain)
	require.Equal(t, "0xabc", call.DestContract)
	require.Equal(t, recipient, call.Recipient)
	require.Equal(t, int64(123_000_000), call.Amount.Int64())
	require.Nil(t, call.GasFee)
}

func TestSender_BridgeWithERC20Gas_CarriesNoValue(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")
	sender := NewSender(client, common.HexToAddress("0x6666666666666666666666666666666666666666"), newLegacySigner(t))

	_, err = sender.BridgeWithERC20Gas(context.Background(), "Avalanche", "0xabc", recipient, big.NewInt(2_000_000), big.NewInt(20_000_000), recipient)
	require.NoError(t, err)

	sent := rpc.sentTxs()
	require.Len(t, sent, 1)
	require.Zero(t, sent[0].Value().Sign())

	call, err := DecodeBridgeCall(sent[0].Data())
	require.NoError(t, err)
	require.Equal(t, "bridgeWithERC20Gas", call.Method)
	require.Equal(t, int64(20_000_000), call.GasFee.Int64())
	require.Equal(t, recipient, call.Refund)
}

func TestSender_TransactError(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	rpc.handle("eth_sendRawTransaction", func(json.RawMessage) (interface{}, error) {
		return nil, errors.New("insufficient funds for gas * price + value")
	})
	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	sender := NewSender(client, common.HexToAddress(testContract), newLegacySigner(t))
	_, err = sender.Bridge(context.Background(), "Avalanche", "0xabc", common.Address{1}, big.NewInt(1), nil)
	require.ErrorContains(t, err, "insufficient funds")
}

func TestDecodeBridgeCall_Rejects(t *testing.T) {
	_, err := DecodeBridgeCall([]byte{0x01})
	require.ErrorIs(t, err, ErrNotBridgeCall)

	_, err = DecodeBridgeCall(hexutil.MustDecode("0xdeadbeef"))
	require.ErrorIs(t, err, ErrNotBridgeCall)

	tokenCall, err := senderABI.Pack("token")
	require.NoError(t, err)
	_, err = DecodeBridgeCall(tokenCall)
	require.ErrorIs(t, err, ErrNotBridgeCall)

	truncated, err := senderABI.Pack("bridge", "Avalanche", "0xabc", common.Address{}, big.NewInt(1))
	require.NoError(t, err)
	_, err = DecodeBridgeCall(truncated[:40])
	require.Error(t, err)
}

func TestGateway_ResolveToken_FallsBack(t *testing.T) {
	axl := common.HexToAddress("0x8888888888888888888888888888888888888888")
	client := NewEVMClientWithCallView(big.NewInt(43113), func(_ context.Context, _ string, data []byte) ([]byte, error) {
		args, err := gatewayABI.Methods["tokenAddresses"].Inputs.Unpack(data[4:])
		require.NoError(t, err)
		if args[0].(string) == "axlUSDC" {
			return common.LeftPadBytes(axl.Bytes(), 32), nil
		}
		return make([]byte, 32), nil
	})
	gw := NewGateway(client, common.HexToAddress("0xC249632c2D40b9001FE907806902f63038B737Ab"))

	addr, symbol, err := gw.ResolveToken(context.Background(), []string{"aUSDC", "axlUSDC"})
	require.NoError(t, err)
	require.Equal(t, axl, addr)
	require.Equal(t, "axlUSDC", symbol)

	_, _, err = gw.ResolveToken(context.Background(), []string{"aUSDC"})
	require.Error(t, err)
}

func TestReceiver_TrustHashes(t *testing.T) {
	chainHash := crypto.Keccak256Hash([]byte("ethereum-sepolia"))
	addrHash := crypto.Keccak256Hash([]byte(strings.ToLower("0x6666666666666666666666666666666666666666")))
	client := NewEVMClientWithCallView(big.NewInt(43113), func(_ context.Context, _ string, data []byte) ([]byte, error) {
		method, err := receiverABI.MethodById(data[:4])
		require.NoError(t, err)
		switch method.Name {
		case "expectedSourceChainHash":
			return chainHash.Bytes(), nil
		case "expectedSourceAddressHash":
			return addrHash.Bytes(), nil
		}
		return common.LeftPadBytes([]byte{0x01}, 32), nil
	})
	receiver := NewReceiver(client, common.HexToAddress(testContract), nil)

	got, err := receiver.ExpectedSourceChainHash(context.Background())
	require.NoError(t, err)
	require.Equal(t, chainHash, got)

	got, err = receiver.ExpectedSourceAddressHash(context.Background())
	require.NoError(t, err)
	require.Equal(t, addrHash, got)

	owner, err := receiver.Owner(context.Background())
	require.NoError(t, err)
	require.Equal(t, common.BytesToAddress([]byte{0x01}), owner)

	_, err = receiver.Sweep(context.Background(), common.Address{}, common.Address{}, big.NewInt(1))
	require.ErrorIs(t, err, ErrReadOnly)
}

func receivedLogJSON(t *testing.T, recipient common.Address, amount int64, sourceChain string, block uint64, txHash string) map[string]interface{} {
	t.Helper()
	data, err := receiverABI.Events["Received"].Inputs.NonIndexed().Pack(big.NewInt(amount), sourceChain)
	require.NoError(t, err)
	return map[string]interface{}{
		"address":          testContract,
		"topics":           []string{receivedTopic.Hex(), common.BytesToHash(recipient.Bytes()).Hex()},
		"data":             hexutil.Encode(data),
		"blockNumber":      hexutil.EncodeUint64(block),
		"transactionHash":  txHash,
		"transactionIndex": "0x0",
		"blockHash":        "0x2222222222222222222222222222222222222222222222222222222222222222",
		"logIndex":         "0x3",
		"removed":          false,
	}
}

func TestDecodeReceived(t *testing.T) {
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")
	data, err := receiverABI.Events["Received"].Inputs.NonIndexed().Pack(big.NewInt(123), "Ethereum Sepolia")
	require.NoError(t, err)

	d, err := DecodeReceived(types.Log{
		Topics:      []common.Hash{receivedTopic, common.BytesToHash(recipient.Bytes())},
		Data:        data,
		TxHash:      common.HexToHash(testTxHash),
		Index:       7,
		BlockNumber: 99,
	})
	require.NoError(t, err)
	require.Equal(t, recipient, d.Recipient)
	require.Equal(t, int64(123), d.Amount.Int64())
	require.Equal(t, "Ethereum Sepolia", d.SourceChain)
	require.Equal(t, uint(7), d.LogIndex)
	require.Equal(t, uint64(99), d.BlockNumber)

	_, err = DecodeReceived(types.Log{Topics: []common.Hash{{0x01}}})
	require.Error(t, err)
}

func TestReceiver_FilterReceived_Chunks(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")

	var ranges [][2]string
	rpc.handle("eth_getLogs", func(params json.RawMessage) (interface{}, error) {
		var q []map[string]interface{}
		require.NoError(t, json.Unmarshal(params, &q))
		ranges = append(ranges, [2]string{q[0]["fromBlock"].(string), q[0]["toBlock"].(string)})
		topics := q[0]["topics"].([]interface{})
		require.Len(t, topics, 2)
		if len(ranges) == 2 {
			return []interface{}{receivedLogJSON(t, recipient, 5, "ethereum-sepolia", 700, testTxHash)}, nil
		}
		return []interface{}{}, nil
	})

	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	receiver := NewReceiver(client, common.HexToAddress(testContract), nil)
	out, err := receiver.FilterReceived(context.Background(), 0, 1200, 500, recipient)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, recipient, out[0].Recipient)
	require.Equal(t, [][2]string{{"0x0", "0x1f3"}, {"0x1f4", "0x3e7"}, {"0x3e8", "0x4b0"}}, ranges)
}

func TestReceiver_WatchReceived_PollsNewBlocks(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")

	var head uint64 = 10
	rpc.handle("eth_blockNumber", func(json.RawMessage) (interface{}, error) {
		head++
		return hexutil.EncodeUint64(head), nil
	})
	served := false
	rpc.handle("eth_getLogs", func(json.RawMessage) (interface{}, error) {
		if served {
			return []interface{}{}, nil
		}
		served = true
		return []interface{}{receivedLogJSON(t, recipient, 123, "ethereum-sepolia", head, testTxHash)}, nil
	})

	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	receiver := NewReceiver(client, common.HexToAddress(testContract), nil)
	receiver.SetPollInterval(5 * time.Millisecond)

	sink := make(chan entities.Delivery, 1)
	sub, err := receiver.WatchReceived(context.Background(), sink)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	select {
	case d := <-sink:
		require.Equal(t, recipient, d.Recipient)
		require.Equal(t, int64(123), d.Amount.Int64())
		require.Equal(t, "ethereum-sepolia", d.SourceChain)
		require.Equal(t, testTxHash, strings.ToLower(d.TxHash))
	case <-time.After(2 * time.Second):
		t.Fatal("delivery not observed")
	}

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestReceiver_WatchReceived_ReplaysRecentBlocksOnBind(t *testing.T) {
	rpc, srv := newFakeRPC(t)
	recipient := common.HexToAddress("0x7777777777777777777777777777777777777777")

	rpc.handle("eth_blockNumber", func(json.RawMessage) (interface{}, error) { return "0x2a", nil })
	ranges := make(chan [2]string, 16)
	rpc.handle("eth_getLogs", func(params json.RawMessage) (interface{}, error) {
		var q []map[string]interface{}
		require.NoError(t, json.Unmarshal(params, &q))
		select {
		case ranges <- [2]string{q[0]["fromBlock"].(string), q[0]["toBlock"].(string)}:
		default:
		}
		// mined before the watcher was bound
		return []interface{}{receivedLogJSON(t, recipient, 123, "ethereum-sepolia", 40, testTxHash)}, nil
	})

	client, err := NewEVMClient(srv.URL)
	require.NoError(t, err)
	defer client.Close()

	receiver := NewReceiver(client, common.HexToAddress(testContract), nil)
	receiver.SetPollInterval(5 * time.Millisecond)
	receiver.SetReplayBlocks(10)

	sink := make(chan entities.Delivery, 4)
	sub, err := receiver.WatchReceived(context.Background(), sink)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	select {
	case r := <-ranges:
		require.Equal(t, [2]string{"0x21", "0x2a"}, r)
	case <-time.After(2 * time.Second):
		t.Fatal("no log query issued")
	}
	select {
	case d := <-sink:
		require.Equal(t, uint64(40), d.BlockNumber)
		require.Equal(t, int64(123), d.Amount.Int64())
	case <-time.After(2 * time.Second):
		t.Fatal("replayed delivery not observed")
	}
}

func TestReceiver_ReplayStart(t *testing.T) {
	r := &Receiver{}
	r.SetReplayBlocks(10)
	require.Equal(t, uint64(33), r.replayStart(42))
	require.Equal(t, uint64(0), r.replayStart(5))
	require.Equal(t, uint64(0), r.replayStart(9))
	require.Equal(t, uint64(1), r.replayStart(10))
}

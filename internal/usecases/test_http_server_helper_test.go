package usecases

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"usdc-bridge.backend/internal/infrastructure/blockchain"
)

func newSafeHTTPServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Skipf("skip: httptest server unavailable in this environment: %v", r)
		}
	}()
	return httptest.NewServer(handler)
}

type rpcMethod func(params json.RawMessage) (interface{}, error)

// chainRPC is a JSON-RPC endpoint for one chain. eth_call is routed by selector.
type chainRPC struct {
	mu       sync.Mutex
	chainID  int64
	methods  map[string]rpcMethod
	views    map[string]func(data []byte) ([]byte, error)
	requests map[string]int
	srv      *httptest.Server
}

func newChainRPC(t *testing.T, chainID int64) *chainRPC {
	t.Helper()
	c := &chainRPC{
		chainID:  chainID,
		views:    map[string]func([]byte) ([]byte, error){},
		requests: map[string]int{},
	}
	c.methods = map[string]rpcMethod{
		"eth_chainId":     func(json.RawMessage) (interface{}, error) { return hexutil.EncodeBig(big.NewInt(c.chainID)), nil },
		"eth_blockNumber": func(json.RawMessage) (interface{}, error) { return "0x2a", nil },
		"eth_getCode":     func(json.RawMessage) (interface{}, error) { return "0x6080", nil },
		"eth_getLogs":     func(json.RawMessage) (interface{}, error) { return []interface{}{}, nil },
		"eth_getTransactionReceipt": func(json.RawMessage) (interface{}, error) {
			return rpcReceipt(1, 1), nil
		},
		"eth_call": c.call,
	}

	c.srv = newSafeHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     interface{}     `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		c.mu.Lock()
		c.requests[req.Method]++
		h, ok := c.methods[req.Method]
		c.mu.Unlock()

		res := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if !ok {
			res["error"] = map[string]interface{}{"code": -32601, "message": "method not found: " + req.Method}
		} else if out, err := h(req.Params); err != nil {
			res["error"] = map[string]interface{}{"code": -32000, "message": err.Error()}
		} else {
			res["result"] = out
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(c.srv.Close)
	return c
}

func (c *chainRPC) URL() string { return c.srv.URL }

func (c *chainRPC) handle(method string, h rpcMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[method] = h
}

// view answers eth_call for the named method of parsed
func (c *chainRPC) view(selector []byte, fn func(data []byte) ([]byte, error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[hexutil.Encode(selector)] = fn
}

func (c *chainRPC) count(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[method]
}

func (c *chainRPC) call(params json.RawMessage) (interface{}, error) {
	var args []map[string]interface{}
	_ = json.Unmarshal(params, &args)
	var raw string
	if len(args) > 0 {
		for _, key := range []string{"input", "data"} {
			if s, ok := args[0][key].(string); ok {
				raw = s
				break
			}
		}
	}
	data := common.FromHex(raw)
	if len(data) < 4 {
		return "0x", nil
	}
	c.mu.Lock()
	fn, ok := c.views[hexutil.Encode(data[:4])]
	c.mu.Unlock()
	if !ok {
		return nil, errUnexpectedCall
	}
	out, err := fn(data)
	if err != nil {
		return nil, err
	}
	return hexutil.Encode(out), nil
}

type rpcError string

func (e rpcError) Error() string { return string(e) }

const errUnexpectedCall = rpcError("execution reverted")

func rpcReceipt(status, block uint64) map[string]interface{} {
	return map[string]interface{}{
		"transactionHash":   "0x1111111111111111111111111111111111111111111111111111111111111111",
		"transactionIndex":  "0x0",
		"blockHash":         "0x2222222222222222222222222222222222222222222222222222222222222222",
		"blockNumber":       hexutil.EncodeUint64(block),
		"from":              "0x3333333333333333333333333333333333333333",
		"to":                "0x4444444444444444444444444444444444444444",
		"cumulativeGasUsed": "0x5208",
		"gasUsed":           "0x5208",
		"contractAddress":   nil,
		"logs":              []interface{}{},
		"logsBloom":         "0x" + strings.Repeat("0", 512),
		"status":            hexutil.EncodeUint64(status),
		"effectiveGasPrice": "0x3b9aca00",
		"type":              "0x0",
	}
}

func rpcTransaction(input []byte) map[string]interface{} {
	return map[string]interface{}{
		"hash":             "0x1111111111111111111111111111111111111111111111111111111111111111",
		"nonce":            "0x0",
		"blockHash":        "0x2222222222222222222222222222222222222222222222222222222222222222",
		"blockNumber":      "0x1",
		"transactionIndex": "0x0",
		"from":             "0x3333333333333333333333333333333333333333",
		"to":               "0x4444444444444444444444444444444444444444",
		"value":            "0x0",
		"gas":              "0x5208",
		"gasPrice":         "0x3b9aca00",
		"input":            hexutil.Encode(input),
		"v":                "0x1b",
		"r":                "0x1",
		"s":                "0x2",
		"type":             "0x0",
	}
}

func receivedLog(t *testing.T, receiver, recipient common.Address, amount int64, sourceChain string, block uint64, logIndex uint) map[string]interface{} {
	t.Helper()
	event := blockchain.ReceiverABI().Events["Received"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amount), sourceChain)
	require.NoError(t, err)
	return map[string]interface{}{
		"address":          receiver.Hex(),
		"topics":           []string{event.ID.Hex(), common.BytesToHash(recipient.Bytes()).Hex()},
		"data":             hexutil.Encode(data),
		"blockNumber":      hexutil.EncodeUint64(block),
		"transactionHash":  "0x5555555555555555555555555555555555555555555555555555555555555555",
		"transactionIndex": "0x0",
		"blockHash":        "0x2222222222222222222222222222222222222222222222222222222222222222",
		"logIndex":         hexutil.EncodeUint64(uint64(logIndex)),
		"removed":          false,
	}
}

func word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

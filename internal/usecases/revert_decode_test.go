package usecases

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

type rpcDataErrorStub struct {
	msg  string
	data interface{}
}

func (e rpcDataErrorStub) Error() string          { return e.msg }
func (e rpcDataErrorStub) ErrorData() interface{} { return e.data }

type rpcCodeErrorStub struct{ msg string }

func (e rpcCodeErrorStub) Error() string  { return e.msg }
func (e rpcCodeErrorStub) ErrorCode() int { return -32000 }

// Error(string) with "Insufficient allowance"
const revertInsufficientAllowance = "0x08c379a0" +
	"0000000000000000000000000000000000000000000000000000000000000020" +
	"0000000000000000000000000000000000000000000000000000000000000016" +
	"496e73756666696369656e7420616c6c6f77616e636500000000000000000000"

func TestTxErrorMessage_RevertReasonFromDataError(t *testing.T) {
	err := rpcDataErrorStub{msg: "execution reverted", data: revertInsufficientAllowance}
	require.Equal(t, "Insufficient allowance", txErrorMessage(err))

	wrapped := fmt.Errorf("send: %w", err)
	require.Equal(t, "Insufficient allowance", txErrorMessage(wrapped))

	bytesErr := rpcDataErrorStub{msg: "execution reverted", data: hexutil.MustDecode(revertInsufficientAllowance)}
	require.Equal(t, "Insufficient allowance", txErrorMessage(bytesErr))

	mapErr := rpcDataErrorStub{msg: "execution reverted", data: map[string]interface{}{"data": revertInsufficientAllowance}}
	require.Equal(t, "Insufficient allowance", txErrorMessage(mapErr))
}

func TestTxErrorMessage_RevertHexInMessage(t *testing.T) {
	err := errors.New("call failed: " + revertInsufficientAllowance)
	require.Equal(t, "Insufficient allowance", txErrorMessage(err))
}

func TestTxErrorMessage_PlainReasonText(t *testing.T) {
	require.Equal(t, "Bad token", txErrorMessage(errors.New("execution reverted: Bad token")))
}

func TestTxErrorMessage_PanicCode(t *testing.T) {
	err := rpcDataErrorStub{
		msg:  "execution reverted",
		data: "0x4e487b710000000000000000000000000000000000000000000000000000000000000011",
	}
	require.Contains(t, txErrorMessage(err), "overflow")
}

func TestTxErrorMessage_ProviderThenGeneric(t *testing.T) {
	provider := fmt.Errorf("bridge: %w", rpcCodeErrorStub{msg: "insufficient funds for gas * price + value"})
	require.Equal(t, "insufficient funds for gas * price + value", txErrorMessage(provider))

	require.Equal(t, "nonce too low", txErrorMessage(errors.New("nonce too low")))
	require.Equal(t, genericBridgeFailure, txErrorMessage(errors.New("  ")))
	require.Equal(t, genericBridgeFailure, txErrorMessage(nil))
}

func TestRevertReasonFromError_NoData(t *testing.T) {
	_, ok := revertReasonFromError(errors.New("execution reverted"))
	require.False(t, ok)

	_, ok = revertReasonFromError(rpcDataErrorStub{msg: "x", data: "0xdeadbeef"})
	require.False(t, ok)

	_, ok = revertReasonFromError(nil)
	require.False(t, ok)
}

func TestParseHexBytes(t *testing.T) {
	_, ok := parseHexBytes("0x123")
	require.False(t, ok)
	_, ok = parseHexBytes("0xzzzzzzzz")
	require.False(t, ok)
	out, ok := parseHexBytes("0xdeadbeef")
	require.True(t, ok)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out)
}

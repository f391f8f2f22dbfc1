package usecases

import (
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const genericBridgeFailure = "Bridge failed"

var (
	revertHexPattern    = regexp.MustCompile(`0x[0-9a-fA-F]{8,}`)
	revertReasonPattern = regexp.MustCompile(`execution reverted: (.+)$`)
)

// txErrorMessage picks the best user-facing message for a failed transaction:
// the contract revert reason, then the provider's own message, then a generic one.
func txErrorMessage(err error) string {
	if err == nil {
		return genericBridgeFailure
	}
	if reason, ok := revertReasonFromError(err); ok {
		return reason
	}

	type rpcError interface {
		Error() string
		ErrorCode() int
	}
	var providerErr rpcError
	if errors.As(err, &providerErr) {
		if msg := strings.TrimSpace(providerErr.Error()); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return genericBridgeFailure
}

// revertReasonFromError extracts a decoded revert reason from an RPC error.
// It supports rpc.DataError payloads, hex embedded in the message and the
// plain "execution reverted: reason" form.
func revertReasonFromError(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	if data, ok := extractRevertHexFromDataError(err); ok {
		if reason, ok := decodeRevertReason(data); ok {
			return reason, true
		}
	}
	if data, ok := extractRevertHexFromErrorString(err.Error()); ok {
		if reason, ok := decodeRevertReason(data); ok {
			return reason, true
		}
	}
	if m := revertReasonPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		if reason := strings.TrimSpace(m[1]); reason != "" && !revertHexPattern.MatchString(reason) {
			return reason, true
		}
	}
	return "", false
}

func decodeRevertReason(data []byte) (string, bool) {
	reason, err := abi.UnpackRevert(data)
	if err != nil || strings.TrimSpace(reason) == "" {
		return "", false
	}
	return reason, true
}

func extractRevertHexFromDataError(err error) ([]byte, bool) {
	type rpcDataError interface {
		ErrorData() interface{}
	}
	var dataErr rpcDataError
	if !errors.As(err, &dataErr) {
		return nil, false
	}
	return parseRevertBytesFromAny(dataErr.ErrorData())
}

func parseRevertBytesFromAny(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case string:
		return parseHexBytes(v)
	case []byte:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]byte, len(v))
		copy(out, v)
		return out, true
	case map[string]interface{}:
		if raw, ok := v["data"]; ok {
			return parseRevertBytesFromAny(raw)
		}
		if raw, ok := v["result"]; ok {
			return parseRevertBytesFromAny(raw)
		}
	case map[string]string:
		if raw, ok := v["data"]; ok {
			return parseHexBytes(raw)
		}
	}
	return nil, false
}

func extractRevertHexFromErrorString(message string) ([]byte, bool) {
	for _, candidate := range revertHexPattern.FindAllString(message, -1) {
		if data, ok := parseHexBytes(candidate); ok {
			return data, true
		}
	}
	return nil, false
}

func parseHexBytes(raw string) ([]byte, bool) {
	value := strings.TrimSpace(strings.TrimPrefix(raw, "0x"))
	if len(value) < 8 || len(value)%2 != 0 {
		return nil, false
	}
	data, err := hex.DecodeString(value)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

package blockchain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
 {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

const senderABIJSON = `[
 {"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"gateway","type":"address"},{"name":"gasService","type":"address"},{"name":"token","type":"address"}]},
 {"type":"function","name":"bridge","stateMutability":"payable","inputs":[{"name":"destChain","type":"string"},{"name":"destContract","type":"string"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"function","name":"bridgeWithERC20Gas","stateMutability":"nonpayable","inputs":[{"name":"destChain","type":"string"},{"name":"destContract","type":"string"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"gasFee","type":"uint256"},{"name":"refundAddress","type":"address"}],"outputs":[]},
 {"type":"function","name":"token","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"event","name":"Bridging","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"recipient","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"destChain","type":"string","indexed":false},{"name":"destContract","type":"string","indexed":false}]}
]`

const receiverABIJSON = `[
 {"type":"constructor","stateMutability":"nonpayable","inputs":[{"name":"gateway","type":"address"},{"name":"sourceChain","type":"string"},{"name":"sourceAddress","type":"string"}]},
 {"type":"function","name":"expectedSourceChainHash","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
 {"type":"function","name":"expectedSourceAddressHash","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
 {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
 {"type":"function","name":"sweep","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
 {"type":"event","name":"Received","anonymous":false,"inputs":[{"name":"recipient","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"sourceChain","type":"string","indexed":false}]}
]`

const gatewayABIJSON = `[
 {"type":"function","name":"tokenAddresses","stateMutability":"view","inputs":[{"name":"symbol","type":"string"}],"outputs":[{"name":"","type":"address"}]}
]`

var (
	erc20ABI    = mustParseABI(erc20ABIJSON)
	senderABI   = mustParseABI(senderABIJSON)
	receiverABI = mustParseABI(receiverABIJSON)
	gatewayABI  = mustParseABI(gatewayABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("blockchain: invalid embedded ABI: %v", err))
	}
	return parsed
}

// SenderABI returns the Sender contract interface, used when deploying from an artifact without one
func SenderABI() abi.ABI { return senderABI }

// ReceiverABI returns the Receiver contract interface
func ReceiverABI() abi.ABI { return receiverABI }

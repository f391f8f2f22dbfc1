package usecases

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"usdc-bridge.backend/internal/config"
)

const (
	testSourceChainID  int64 = 11155111
	testOtherSourceID  int64 = 84532
	testUnsupportedID  int64 = 1
	testDestChainID    int64 = 43113
	testSourceRPC            = "mem://sepolia"
	testOtherSourceRPC       = "mem://base-sepolia"
	testDestRPC              = "mem://fuji"

	testSourceToken = "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
	testSender      = "0x5555555555555555555555555555555555555555"
	testOtherToken  = "0x036CbD53842c5426634e7929541eC2318f3dCF7e"
	testOtherSender = "0x6666666666666666666666666666666666666666"
	testDestToken   = "0x5425890298aed601595a70AB815c96711a31Bc65"
	testReceiver    = "0x7777777777777777777777777777777777777777"
	testGateway     = "0xC249632c2D40b9001FE907806902f63038B737Ab"
)

func testNetworksJSON(destToken string) string {
	return fmt.Sprintf(`{
  "bridge": {
    "destChain": "Avalanche",
    "destChainId": %d,
    "sourceChainName": "ethereum-sepolia",
    "defaultGasEth": "0.01",
    "relayTxUrl": "https://testnet.axelarscan.io/gmp/%%s"
  },
  "chains": {
    "%d": {
      "network": "sepolia", "name": "Ethereum Sepolia", "role": "source",
      "rpcUrl": %q, "explorerTxUrl": "https://sepolia.etherscan.io/tx/%%s",
      "token": %q, "sender": %q
    },
    "%d": {
      "network": "base-sepolia", "name": "Base Sepolia", "role": "source",
      "rpcUrl": %q, "explorerTxUrl": "https://sepolia.basescan.org/tx/%%s",
      "token": %q, "sender": %q
    },
    "%d": {
      "network": "fuji", "name": "Avalanche Fuji", "role": "destination",
      "rpcUrl": %q, "explorerTxUrl": "https://testnet.snowtrace.io/tx/%%s",
      "token": %q, "receiver": %q, "gateway": %q
    }
  }
}`,
		testDestChainID,
		testSourceChainID, testSourceRPC, testSourceToken, testSender,
		testOtherSourceID, testOtherSourceRPC, testOtherToken, testOtherSender,
		testDestChainID, testDestRPC, destToken, testReceiver, testGateway,
	)
}

func testNetworks(t *testing.T) *config.Networks {
	t.Helper()
	n, err := config.ParseNetworks([]byte(testNetworksJSON(testDestToken)))
	require.NoError(t, err)
	return n
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/internal/usecases"
)

var (
	testAccount   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func testNetworks() *config.Networks {
	return &config.Networks{
		Bridge: config.BridgeDefaults{
			DestChain:       "Avalanche",
			DestChainID:     43113,
			SourceChainName: "ethereum-sepolia",
			DefaultGasEth:   "0.01",
			TokenDecimals:   6,
			TokenSymbols:    []string{"aUSDC", "axlUSDC"},
		},
		Chains: map[string]config.ChainConfig{
			"11155111": {Network: "sepolia", Name: "Ethereum Sepolia", Role: config.RoleSource},
			"43113":    {Network: "fuji", Name: "Avalanche Fuji", Role: config.RoleDestination, Receiver: "0x3333333333333333333333333333333333333333"},
		},
	}
}

type sessionServiceStub struct {
	snap         usecases.SessionSnapshot
	accounts     []common.Address
	refreshFn    func(ctx context.Context) (entities.Balances, error)
	switchNetFn  func(chainID int64) error
	switchAcctFn func(raw string) error
}

func (s sessionServiceStub) Snapshot() usecases.SessionSnapshot { return s.snap }
func (s sessionServiceStub) Accounts() []common.Address         { return s.accounts }
func (s sessionServiceStub) RefreshBalances(ctx context.Context) (entities.Balances, error) {
	return s.refreshFn(ctx)
}
func (s sessionServiceStub) SwitchNetwork(chainID int64) error { return s.switchNetFn(chainID) }
func (s sessionServiceStub) SwitchAccount(raw string) error    { return s.switchAcctFn(raw) }

func connectedSnapshot() usecases.SessionSnapshot {
	return usecases.SessionSnapshot{
		Connected: true,
		Account:   testAccount,
		Binding:   entities.ChainBinding{ChainID: 11155111, IsSupportedSource: true},
		Balances:  entities.Balances{Source: "5.000000", Dest: "0.000000"},
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// closeNotifyRecorder lets gin's Stream run against a recorder
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool { return r.closed }

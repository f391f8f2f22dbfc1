package entities

import (
	"math/big"
	"testing"
)

func TestPhase_InFlight(t *testing.T) {
	inFlight := []Phase{PhaseApproving, PhaseSending, PhaseAwaitingRelay}
	for _, p := range inFlight {
		if !p.InFlight() {
			t.Fatalf("expected %s to be in flight", p)
		}
	}
	for _, p := range []Phase{PhaseIdle, PhaseDelivered, PhaseFailed} {
		if p.InFlight() {
			t.Fatalf("expected %s to accept new requests", p)
		}
	}
}

func TestBridgeRequest_RequiredAllowance(t *testing.T) {
	native := &BridgeRequest{Amount: big.NewInt(123), GasPrepay: GasPrepay{Mode: GasModeNative, Amount: big.NewInt(10)}}
	if got := native.RequiredAllowance(); got.Int64() != 123 {
		t.Fatalf("native gas must not raise allowance, got %s", got)
	}

	token := &BridgeRequest{Amount: big.NewInt(123), GasPrepay: GasPrepay{Mode: GasModeToken, Amount: big.NewInt(7)}}
	if got := token.RequiredAllowance(); got.Int64() != 130 {
		t.Fatalf("token gas must be added to allowance, got %s", got)
	}

	empty := &BridgeRequest{}
	if got := empty.RequiredAllowance(); got.Sign() != 0 {
		t.Fatalf("expected zero allowance, got %s", got)
	}

	// the request amount is never aliased
	got := token.RequiredAllowance()
	got.SetInt64(1)
	if token.Amount.Int64() != 123 {
		t.Fatal("required allowance must not alias the request amount")
	}
}

package usecases

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/pkg/logger"
	"usdc-bridge.backend/pkg/metrics"
)

// Failure codes carried in LifecycleState.ErrorInfo
const (
	FailureApprove  = "APPROVE_FAILED"
	FailureSend     = "SEND_FAILED"
	FailureReverted = "REVERTED"
)

const bridgeRevertedMessage = "Bridge transaction reverted"

var errApproveReverted = errors.New("approve transaction reverted")

// SessionSnapshot is the whole session state a bridge request is checked and run against
type SessionSnapshot struct {
	Connected  bool
	Account    common.Address
	Binding    entities.ChainBinding
	Contracts  *ContractSet
	Balances   entities.Balances
	Generation uint64
}

// SnapshotSource hands out the current session state. Every chain or account
// change bumps Generation.
type SnapshotSource interface {
	Snapshot() SessionSnapshot
}

// DestinationVerifier runs the optional destination-side preflight checks
type DestinationVerifier interface {
	Verify(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot) error
}

// LifecycleObserver is told about every accepted request and every state change
type LifecycleObserver interface {
	OnRequest(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot)
	OnTransition(ctx context.Context, state entities.LifecycleState)
}

// OrchestratorOptions tunes the orchestrator
type OrchestratorOptions struct {
	// FilterByRecipient ignores deliveries naming a different recipient than the active request.
	FilterByRecipient bool
	Verifier          DestinationVerifier
	Observers         []LifecycleObserver
}

// BridgeOrchestrator drives one bridge request at a time through
// Idle, Approving, Sending, AwaitingRelay and Delivered, or Failed.
type BridgeOrchestrator struct {
	session  SnapshotSource
	notifier *Notifier
	opts     OrchestratorOptions
	now      func() time.Time

	mu      sync.Mutex
	state   entities.LifecycleState
	active  *entities.BridgeRequest
	running bool
	sentAt  time.Time
}

// NewBridgeOrchestrator creates an orchestrator in the Idle phase
func NewBridgeOrchestrator(session SnapshotSource, notifier *Notifier, opts OrchestratorOptions) *BridgeOrchestrator {
	o := &BridgeOrchestrator{
		session:  session,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
	o.state = entities.LifecycleState{Phase: entities.PhaseIdle, UpdatedAt: o.now()}
	return o
}

// State returns a copy of the lifecycle state
func (o *BridgeOrchestrator) State() entities.LifecycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ActiveRequest returns the request the current lifecycle belongs to, if any
func (o *BridgeOrchestrator) ActiveRequest() *entities.BridgeRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.active
}

// Submit runs the preflight checks synchronously and the transactions in the background.
// The returned error is a preflight or conflict error; transaction failures land in State.
func (o *BridgeOrchestrator) Submit(ctx context.Context, req *entities.BridgeRequest) error {
	snap, err := o.begin(ctx, req)
	if err != nil {
		return err
	}
	go o.run(context.WithoutCancel(ctx), req, snap)
	return nil
}

// Execute runs a request to AwaitingRelay or Failed and returns the resulting state.
// Cancelling ctx only stops the wait: transactions already started are followed to
// their receipts in the background, and the state at cancellation is returned.
func (o *BridgeOrchestrator) Execute(ctx context.Context, req *entities.BridgeRequest) (entities.LifecycleState, error) {
	snap, err := o.begin(ctx, req)
	if err != nil {
		return o.State(), err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.run(context.WithoutCancel(ctx), req, snap)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Info(ctx, "Caller stopped waiting, bridge continues in the background",
			zap.String("phase", string(o.State().Phase)))
	}
	return o.State(), nil
}

func (o *BridgeOrchestrator) begin(ctx context.Context, req *entities.BridgeRequest) (SessionSnapshot, error) {
	o.mu.Lock()
	if o.running || o.state.Phase.InFlight() {
		o.mu.Unlock()
		metrics.RecordPreflightRejection("in_flight")
		return SessionSnapshot{}, domainerrors.Conflict("a bridge request is already in flight")
	}
	o.running = true
	o.mu.Unlock()

	snap := o.session.Snapshot()
	if err := o.preflight(ctx, req, snap); err != nil {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
		metrics.RecordPreflightRejection(preflightReason(err))
		logger.Info(ctx, "Bridge request rejected before any transaction",
			zap.Int64("chain_id", snap.Binding.ChainID),
			zap.String("account", snap.Account.Hex()),
			zap.Error(err),
		)
		return SessionSnapshot{}, err
	}

	o.mu.Lock()
	o.active = req
	o.mu.Unlock()
	for _, obs := range o.opts.Observers {
		obs.OnRequest(ctx, req, snap)
	}
	o.transition(ctx, func(s *entities.LifecycleState) {
		*s = entities.LifecycleState{Phase: entities.PhaseApproving, RequestID: req.ID}
	})
	return snap, nil
}

func (o *BridgeOrchestrator) preflight(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot) error {
	if req == nil {
		return domainerrors.BadRequest("bridge request is required")
	}
	if !snap.Connected {
		return domainerrors.Preflight(domainerrors.ErrWalletNotConnected, "")
	}
	if !snap.Binding.IsSupportedSource {
		return domainerrors.Preflight(domainerrors.ErrWrongNetwork, "")
	}
	if snap.Contracts == nil {
		return domainerrors.Preflight(domainerrors.ErrContractsUnavailable, "")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return domainerrors.Preflight(domainerrors.ErrInvalidAmount, "")
	}
	if req.GasPrepay.Amount != nil && req.GasPrepay.Amount.Sign() < 0 {
		return domainerrors.Preflight(domainerrors.ErrInvalidAmount, "gas prepay must not be negative")
	}
	balance := snap.Balances.SourceRaw
	if balance == nil || req.RequiredAllowance().Cmp(balance) > 0 {
		return domainerrors.Preflight(domainerrors.ErrInsufficientBalance, "")
	}
	if req.DestContractAddress == "" {
		return domainerrors.Preflight(domainerrors.ErrDestinationRequired, "")
	}
	if req.Recipient == (common.Address{}) {
		return domainerrors.Preflight(domainerrors.ErrInvalidAddress, "recipient address is required")
	}
	if o.opts.Verifier != nil {
		return o.opts.Verifier.Verify(ctx, req, snap)
	}
	return nil
}

func (o *BridgeOrchestrator) run(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot) {
	ctx = logger.WithTransferID(ctx, req.ID.String())
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	set := snap.Contracts
	approveHash, err := o.ensureAllowance(ctx, req, snap)
	if o.stale(ctx, snap, "approve") {
		return
	}
	if err != nil {
		o.fail(ctx, req, snap, FailureApprove, txErrorMessage(err), "")
		return
	}
	o.emit(ctx, snap, entities.Signal{Kind: entities.SignalApproved, RequestID: req.ID, TxHash: hashOrEmpty(approveHash)})

	o.transition(ctx, func(s *entities.LifecycleState) { s.Phase = entities.PhaseSending })

	var sendHash common.Hash
	if req.GasPrepay.Mode == entities.GasModeToken {
		sendHash, err = set.Sender.BridgeWithERC20Gas(ctx, req.DestChainName, req.DestContractAddress, req.Recipient, req.Amount, gasAmount(req), req.GasPrepay.Refund)
	} else {
		sendHash, err = set.Sender.Bridge(ctx, req.DestChainName, req.DestContractAddress, req.Recipient, req.Amount, gasAmount(req))
	}
	if o.stale(ctx, snap, "bridge", zap.String("tx_hash", hashOrEmpty(sendHash))) {
		return
	}
	if err != nil {
		o.fail(ctx, req, snap, FailureSend, txErrorMessage(err), "")
		return
	}
	o.transition(ctx, func(s *entities.LifecycleState) { s.SourceTxHash = sendHash.Hex() })

	receipt, err := set.Waiter.WaitReceipt(ctx, sendHash)
	if o.stale(ctx, snap, "bridge receipt", zap.String("tx_hash", sendHash.Hex())) {
		return
	}
	if err != nil {
		o.fail(ctx, req, snap, FailureSend, txErrorMessage(err), sendHash.Hex())
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		o.fail(ctx, req, snap, FailureReverted, bridgeRevertedMessage, sendHash.Hex())
		return
	}

	o.mu.Lock()
	o.sentAt = o.now()
	o.mu.Unlock()
	o.transition(ctx, func(s *entities.LifecycleState) { s.Phase = entities.PhaseAwaitingRelay })
	o.emit(ctx, snap, entities.Signal{Kind: entities.SignalSent, RequestID: req.ID, TxHash: sendHash.Hex()})
	o.emit(ctx, snap, entities.Signal{Kind: entities.SignalRelaying, RequestID: req.ID, TxHash: sendHash.Hex()})
}

// ensureAllowance approves the Sender for the required amount. A failed direct approve
// is retried once as approve(0) then approve(need); a failure there is final.
func (o *BridgeOrchestrator) ensureAllowance(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot) (common.Hash, error) {
	set := snap.Contracts
	need := req.RequiredAllowance()
	spender := set.Sender.Address()

	allowance, err := set.SourceToken.Allowance(ctx, snap.Account, spender)
	if err != nil {
		return common.Hash{}, err
	}
	if allowance.Cmp(need) >= 0 {
		logger.Debug(ctx, "Allowance already sufficient", zap.String("allowance", allowance.String()))
		return common.Hash{}, nil
	}

	hash, err := o.approve(ctx, set, spender, need)
	if err == nil {
		return hash, nil
	}
	if o.isStale(snap) {
		return common.Hash{}, err
	}
	logger.Warn(ctx, "Direct approve failed, resetting allowance to zero first", zap.Error(err))

	if _, err := o.approve(ctx, set, spender, new(big.Int)); err != nil {
		return common.Hash{}, err
	}
	if o.isStale(snap) {
		return common.Hash{}, domainerrors.ErrStaleContracts
	}
	return o.approve(ctx, set, spender, need)
}

func (o *BridgeOrchestrator) approve(ctx context.Context, set *ContractSet, spender common.Address, amount *big.Int) (common.Hash, error) {
	hash, err := set.SourceToken.Approve(ctx, spender, amount)
	if err != nil {
		return common.Hash{}, err
	}
	receipt, err := set.Waiter.WaitReceipt(ctx, hash)
	if err != nil {
		return hash, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return hash, errApproveReverted
	}
	logger.Info(ctx, "Approve mined", zap.String("tx_hash", hash.Hex()), zap.String("amount", amount.String()))
	return hash, nil
}

// Deliver completes the active request when d matches it. It reports whether d was accepted.
func (o *BridgeOrchestrator) Deliver(ctx context.Context, d entities.Delivery) bool {
	o.mu.Lock()
	if o.state.Phase != entities.PhaseAwaitingRelay || o.state.SourceTxHash == "" || o.active == nil {
		o.mu.Unlock()
		return false
	}
	req := o.active
	if o.opts.FilterByRecipient && !deliveryMatches(d, req) {
		o.mu.Unlock()
		logger.Debug(ctx, "Ignoring delivery for another transfer",
			zap.String("recipient", d.Recipient.Hex()),
			zap.Stringer("amount", d.Amount),
			zap.String("tx_hash", d.TxHash),
		)
		return false
	}
	sentAt := o.sentAt
	o.mu.Unlock()

	ctx = logger.WithTransferID(ctx, req.ID.String())
	o.transition(ctx, func(s *entities.LifecycleState) {
		s.Phase = entities.PhaseDelivered
		s.DestTxHash = d.TxHash
	})
	if !sentAt.IsZero() {
		metrics.ObserveDeliveryLatency(o.now().Sub(sentAt))
	}
	o.emitSignal(ctx, 0, entities.Signal{Kind: entities.SignalReceived, RequestID: req.ID, TxHash: d.TxHash})
	return true
}

// deliveryMatches reports whether d pays the request's recipient the bridged amount
func deliveryMatches(d entities.Delivery, req *entities.BridgeRequest) bool {
	return d.Recipient == req.Recipient && d.Amount != nil && req.Amount != nil && d.Amount.Cmp(req.Amount) == 0
}

// Dismiss returns a settled or relaying lifecycle to Idle. It refuses while
// transactions are still being submitted.
func (o *BridgeOrchestrator) Dismiss(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return domainerrors.Conflict("bridge transactions are still being submitted")
	}
	if o.state.Phase == entities.PhaseIdle {
		o.mu.Unlock()
		return nil
	}
	o.active = nil
	o.sentAt = time.Time{}
	o.mu.Unlock()

	o.transition(ctx, func(s *entities.LifecycleState) {
		*s = entities.LifecycleState{Phase: entities.PhaseIdle}
	})
	return nil
}

func (o *BridgeOrchestrator) fail(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot, code, message, txHash string) {
	o.transition(ctx, func(s *entities.LifecycleState) {
		s.Phase = entities.PhaseFailed
		s.ErrorInfo = &entities.ErrorInfo{Code: code, Message: message}
	})
	o.emit(ctx, snap, entities.Signal{Kind: entities.SignalReverted, RequestID: req.ID, TxHash: txHash, Message: message})
}

// stale reports whether the session moved to another contract set while awaiting.
// A late response is only logged; the lifecycle is left as it was.
func (o *BridgeOrchestrator) stale(ctx context.Context, snap SessionSnapshot, step string, extra ...zap.Field) bool {
	if !o.isStale(snap) {
		return false
	}
	fields := append([]zap.Field{
		zap.String("step", step),
		zap.Int64("chain_id", snap.Binding.ChainID),
		zap.Error(domainerrors.ErrStaleContracts),
	}, extra...)
	logger.Warn(ctx, "Discarding response from a superseded contract set", fields...)
	return true
}

func (o *BridgeOrchestrator) isStale(snap SessionSnapshot) bool {
	return o.session.Snapshot().Generation != snap.Generation
}

func (o *BridgeOrchestrator) transition(ctx context.Context, mutate func(*entities.LifecycleState)) {
	o.mu.Lock()
	prev := o.state
	next := prev
	mutate(&next)
	next.UpdatedAt = o.now()
	o.state = next
	o.mu.Unlock()

	if next.Phase != prev.Phase {
		metrics.RecordTransition(string(next.Phase))
		logger.Info(ctx, "Bridge lifecycle transition",
			zap.String("from", string(prev.Phase)),
			zap.String("phase", string(next.Phase)),
			zap.String("tx_hash", next.SourceTxHash),
		)
	}
	for _, obs := range o.opts.Observers {
		obs.OnTransition(ctx, next)
	}
}

func (o *BridgeOrchestrator) emit(ctx context.Context, snap SessionSnapshot, sig entities.Signal) {
	o.emitSignal(ctx, snap.Binding.ChainID, sig)
}

func (o *BridgeOrchestrator) emitSignal(ctx context.Context, chainID int64, sig entities.Signal) {
	if o.notifier == nil {
		return
	}
	sig.At = o.now()
	o.notifier.Emit(ctx, sig, chainID)
}

func gasAmount(req *entities.BridgeRequest) *big.Int {
	if req.GasPrepay.Amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(req.GasPrepay.Amount)
}

func hashOrEmpty(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

func preflightReason(err error) string {
	if reason := domainerrors.PreflightReason(err); reason != "" {
		return reason
	}
	return "other"
}

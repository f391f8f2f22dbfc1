package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/domain/repositories"
	"usdc-bridge.backend/internal/infrastructure/blockchain"
	"usdc-bridge.backend/pkg/logger"
)

var (
	deployArtifact = blockchain.Deploy
	loadArtifact   = blockchain.LoadArtifact
)

// SourceReport is what check-source prints
type SourceReport struct {
	ChainID   int64          `json:"chainId"`
	Account   common.Address `json:"account"`
	Token     common.Address `json:"token"`
	Sender    common.Address `json:"sender"`
	Balance   string         `json:"balance"`
	Allowance string         `json:"allowance"`
}

// DestReport is what check-dest prints
type DestReport struct {
	Token            common.Address      `json:"token"`
	Symbol           string              `json:"symbol"`
	Recipient        common.Address      `json:"recipient"`
	RecipientBalance string              `json:"recipientBalance"`
	Receiver         common.Address      `json:"receiver"`
	ReceiverBalance  string              `json:"receiverBalance"`
	Trust            *TrustReport        `json:"trust,omitempty"`
	FromBlock        uint64              `json:"fromBlock"`
	ToBlock          uint64              `json:"toBlock"`
	Deliveries       []entities.Delivery `json:"deliveries"`
}

// ConfirmationReport is the mined state of one source transaction
type ConfirmationReport struct {
	TxHash        common.Hash `json:"txHash"`
	Mined         bool        `json:"mined"`
	Success       bool        `json:"success"`
	Block         uint64      `json:"block,omitempty"`
	LatestBlock   uint64      `json:"latestBlock"`
	Confirmations uint64      `json:"confirmations"`
	Threshold     uint64      `json:"threshold"`
}

// Remaining is how many confirmations are still missing
func (r ConfirmationReport) Remaining() uint64 {
	if r.Confirmations >= r.Threshold {
		return 0
	}
	return r.Threshold - r.Confirmations
}

// Done reports whether the relay confirmation threshold is reached
func (r ConfirmationReport) Done() bool {
	return r.Mined && r.Confirmations >= r.Threshold
}

// OpsUsecase backs the operator commands: deployments, read-only checks and one-shot bridges
type OpsUsecase struct {
	networks        *config.Networks
	clients         *blockchain.ClientFactory
	deployments     repositories.DeploymentRepository
	receiptInterval time.Duration
	now             func() time.Time
}

// NewOpsUsecase creates a new ops usecase
func NewOpsUsecase(
	networks *config.Networks,
	clients *blockchain.ClientFactory,
	deployments repositories.DeploymentRepository,
	receiptInterval time.Duration,
) *OpsUsecase {
	return &OpsUsecase{
		networks:        networks,
		clients:         clients,
		deployments:     deployments,
		receiptInterval: receiptInterval,
		now:             time.Now,
	}
}

// EffectiveNetworks overlays deployment records onto the networks document.
// The loaded document itself is left untouched.
func (u *OpsUsecase) EffectiveNetworks(ctx context.Context) (*config.Networks, error) {
	out := &config.Networks{Bridge: u.networks.Bridge, Chains: make(map[string]config.ChainConfig, len(u.networks.Chains))}
	for key, chain := range u.networks.Chains {
		if u.deployments != nil && chain.Network != "" {
			dep, err := u.deployments.Get(ctx, chain.Network)
			switch {
			case errors.Is(err, domainerrors.ErrNotFound):
			case err != nil:
				return nil, fmt.Errorf("deployment record %s: %w", chain.Network, err)
			default:
				if addr := dep.Contracts["sender"]; addr != "" && chain.Role == config.RoleSource {
					chain.Sender = addr
				}
				if addr := dep.Contracts["receiver"]; addr != "" && chain.Role == config.RoleDestination {
					chain.Receiver = addr
				}
			}
		}
		out.Chains[key] = chain
	}
	return out, nil
}

func (u *OpsUsecase) resolve(ctx context.Context, network string) (*config.Networks, int64, config.ChainConfig, error) {
	eff, err := u.EffectiveNetworks(ctx)
	if err != nil {
		return nil, 0, config.ChainConfig{}, err
	}
	chainID, chain, ok := eff.ByNetwork(network)
	if !ok {
		return nil, 0, config.ChainConfig{}, fmt.Errorf("network %q: %w", network, domainerrors.ErrUnsupportedChain)
	}
	return eff, chainID, chain, nil
}

func (u *OpsUsecase) client(chainID int64, chain config.ChainConfig) (*blockchain.EVMClient, error) {
	client, err := u.clients.ClientForChain(chainID, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", chain.Network, err)
	}
	return client, nil
}

// DeploySender deploys the Sender on a source network and records it
func (u *OpsUsecase) DeploySender(ctx context.Context, network, artifactPath string, signer blockchain.Signer) (*entities.Deployment, error) {
	_, chainID, chain, err := u.resolve(ctx, network)
	if err != nil {
		return nil, err
	}
	if chain.Role != config.RoleSource {
		return nil, domainerrors.BadRequest(fmt.Sprintf("%s is not a source network", network))
	}
	gateway, err := requireAddress("gateway", chain.Gateway)
	if err != nil {
		return nil, err
	}
	gasService, err := requireAddress("gas service", chain.GasService)
	if err != nil {
		return nil, err
	}
	token, err := requireAddress("token", chain.Token)
	if err != nil {
		return nil, err
	}

	return u.deploy(ctx, network, chainID, chain, signer, "sender", artifactPath, blockchain.SenderABI(), gateway, gasService, token)
}

// DeployReceiver deploys the Receiver on the destination network, trusting the
// Sender of sourceNetwork, and records it
func (u *OpsUsecase) DeployReceiver(ctx context.Context, network, sourceNetwork, artifactPath string, signer blockchain.Signer) (*entities.Deployment, error) {
	eff, chainID, chain, err := u.resolve(ctx, network)
	if err != nil {
		return nil, err
	}
	if chain.Role != config.RoleDestination {
		return nil, domainerrors.BadRequest(fmt.Sprintf("%s is not the destination network", network))
	}
	gateway, err := requireAddress("gateway", chain.Gateway)
	if err != nil {
		return nil, err
	}
	_, source, ok := eff.ByNetwork(sourceNetwork)
	if !ok || source.Role != config.RoleSource {
		return nil, fmt.Errorf("source network %q: %w", sourceNetwork, domainerrors.ErrUnsupportedChain)
	}
	sender, err := requireAddress("sender", source.Sender)
	if err != nil {
		return nil, err
	}

	return u.deploy(ctx, network, chainID, chain, signer, "receiver", artifactPath, blockchain.ReceiverABI(),
		gateway, eff.Bridge.SourceChainName, strings.ToLower(sender.Hex()))
}

func (u *OpsUsecase) deploy(
	ctx context.Context,
	network string,
	chainID int64,
	chain config.ChainConfig,
	signer blockchain.Signer,
	name, artifactPath string,
	fallback abi.ABI,
	args ...interface{},
) (*entities.Deployment, error) {
	artifact, err := loadArtifact(artifactPath)
	if err != nil {
		return nil, err
	}
	client, err := u.client(chainID, chain)
	if err != nil {
		return nil, err
	}

	addr, hash, err := deployArtifact(ctx, client, signer, artifact, fallback, args...)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %s", name, txErrorMessage(err))
	}
	logger.Info(ctx, "Deploy transaction sent",
		zap.String("contract", name),
		zap.String("network", network),
		zap.String("address", addr.Hex()),
		zap.String("tx_hash", hash.Hex()),
	)
	if err := u.waitSuccess(ctx, client, hash); err != nil {
		return nil, err
	}

	record, err := u.deployments.Get(ctx, network)
	if errors.Is(err, domainerrors.ErrNotFound) {
		record = &entities.Deployment{Network: network, ChainID: chainID}
	} else if err != nil {
		return nil, err
	}
	if record.Contracts == nil {
		record.Contracts = map[string]string{}
	}
	if record.TxHashes == nil {
		record.TxHashes = map[string]string{}
	}
	if opts, err := signer.TransactOpts(ctx); err == nil {
		record.Deployer = opts.From.Hex()
	}
	record.Contracts[name] = addr.Hex()
	record.TxHashes[name] = hash.Hex()
	record.DeployedAt = u.now().UTC()
	if err := u.deployments.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save deployment record: %w", err)
	}
	return record, nil
}

// CheckSource reads the account's token balance and allowance to the Sender
func (u *OpsUsecase) CheckSource(ctx context.Context, network string, account common.Address) (*SourceReport, error) {
	_, chainID, chain, err := u.resolve(ctx, network)
	if err != nil {
		return nil, err
	}
	if chain.Role != config.RoleSource {
		return nil, domainerrors.BadRequest(fmt.Sprintf("%s is not a source network", network))
	}
	tokenAddr, err := requireAddress("token", chain.Token)
	if err != nil {
		return nil, err
	}
	senderAddr, err := requireAddress("sender", chain.Sender)
	if err != nil {
		return nil, err
	}
	client, err := u.client(chainID, chain)
	if err != nil {
		return nil, err
	}

	token := blockchain.NewERC20(client, tokenAddr, nil)
	decimals := u.tokenDecimals(ctx, token)
	balance, err := token.BalanceOf(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	allowance, err := token.Allowance(ctx, account, senderAddr)
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}
	return &SourceReport{
		ChainID:   chainID,
		Account:   account,
		Token:     tokenAddr,
		Sender:    senderAddr,
		Balance:   FormatUnits(balance, decimals),
		Allowance: FormatUnits(allowance, decimals),
	}, nil
}

// CheckDest reports balances, receiver trust and recent deliveries on the destination.
// Deliveries are searched over the last lookback blocks in chunks.
func (u *OpsUsecase) CheckDest(ctx context.Context, sourceNetwork string, recipient common.Address, lookback uint64) (*DestReport, error) {
	eff, err := u.EffectiveNetworks(ctx)
	if err != nil {
		return nil, err
	}
	dest, ok := eff.Destination()
	if !ok {
		return nil, fmt.Errorf("destination: %w", domainerrors.ErrUnsupportedChain)
	}
	receiverAddr, err := requireAddress("receiver", dest.Receiver)
	if err != nil {
		return nil, err
	}
	client, err := u.client(eff.Bridge.DestChainID, dest)
	if err != nil {
		return nil, err
	}

	report := &DestReport{Recipient: recipient, Receiver: receiverAddr}
	binder := NewContractBinder(eff, u.clients, 0, u.receiptInterval)
	if report.Token, err = binder.resolveDestToken(ctx, client, dest); err != nil {
		return nil, err
	}
	token := blockchain.NewERC20(client, report.Token, nil)
	decimals := u.tokenDecimals(ctx, token)
	if report.Symbol, err = token.Symbol(ctx); err != nil || report.Symbol == "" {
		report.Symbol = eff.Bridge.TokenSymbols[0]
	}

	recipientBal, err := token.BalanceOf(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("recipient balance: %w", err)
	}
	receiverBal, err := token.BalanceOf(ctx, receiverAddr)
	if err != nil {
		return nil, fmt.Errorf("receiver balance: %w", err)
	}
	report.RecipientBalance = FormatUnits(recipientBal, decimals)
	report.ReceiverBalance = FormatUnits(receiverBal, decimals)

	if _, source, ok := eff.ByNetwork(sourceNetwork); ok && common.IsHexAddress(source.Sender) {
		verifier := NewTrustVerifier(eff.Bridge.SourceChainName, NewEVMDestinationInspector(client))
		if report.Trust, err = verifier.Check(ctx, receiverAddr, common.HexToAddress(source.Sender)); err != nil {
			return nil, err
		}
	}

	if lookback == 0 {
		lookback = eff.Bridge.LookbackBlocks
	}
	latest, err := client.GetBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	report.ToBlock = latest
	if latest > lookback {
		report.FromBlock = latest - lookback
	}
	receiver := blockchain.NewReceiver(client, receiverAddr, nil)
	report.Deliveries, err = receiver.FilterReceived(ctx, report.FromBlock, report.ToBlock, eff.Bridge.LogChunkSize, recipient)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// CheckConfirmations reports how deep a source transaction is buried
func (u *OpsUsecase) CheckConfirmations(ctx context.Context, network string, txHash common.Hash, threshold uint64) (*ConfirmationReport, error) {
	_, chainID, chain, err := u.resolve(ctx, network)
	if err != nil {
		return nil, err
	}
	client, err := u.client(chainID, chain)
	if err != nil {
		return nil, err
	}
	if threshold == 0 {
		threshold = u.networks.Bridge.ConfirmationThreshold
	}

	report := &ConfirmationReport{TxHash: txHash, Threshold: threshold}
	if report.LatestBlock, err = client.GetBlockNumber(ctx); err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	receipt, err := client.GetTransactionReceipt(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("receipt: %w", err)
	}

	report.Mined = true
	report.Success = receipt.Status == types.ReceiptStatusSuccessful
	report.Block = receipt.BlockNumber.Uint64()
	if report.LatestBlock >= report.Block {
		report.Confirmations = report.LatestBlock - report.Block + 1
	}
	return report, nil
}

// WatchConfirmations polls until the threshold is reached, reporting every poll
func (u *OpsUsecase) WatchConfirmations(ctx context.Context, network string, txHash common.Hash, threshold uint64, interval time.Duration, onReport func(*ConfirmationReport)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		report, err := u.CheckConfirmations(ctx, network, txHash, threshold)
		if err != nil {
			return err
		}
		onReport(report)
		if report.Done() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DecodeBridge decodes the Sender call carried by a transaction
func (u *OpsUsecase) DecodeBridge(ctx context.Context, network string, txHash common.Hash) (*blockchain.BridgeCall, error) {
	_, chainID, chain, err := u.resolve(ctx, network)
	if err != nil {
		return nil, err
	}
	client, err := u.client(chainID, chain)
	if err != nil {
		return nil, err
	}
	tx, _, err := client.GetTransaction(ctx, txHash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, domainerrors.NotFound("transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("transaction: %w", err)
	}
	return blockchain.DecodeBridgeCall(tx.Data())
}

// Sweep moves tokens stuck in the Receiver to another address. Owner only.
// An empty token sweeps the bridged token.
func (u *OpsUsecase) Sweep(ctx context.Context, signer blockchain.Signer, tokenRaw, toRaw, amountRaw string) (common.Hash, error) {
	eff, err := u.EffectiveNetworks(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	dest, _ := eff.Destination()
	receiverAddr, err := requireAddress("receiver", dest.Receiver)
	if err != nil {
		return common.Hash{}, err
	}
	to, err := requireAddress("sweep target", toRaw)
	if err != nil {
		return common.Hash{}, err
	}
	amount, err := ParseUnits(amountRaw, eff.Bridge.TokenDecimals)
	if err != nil || amount.Sign() <= 0 {
		return common.Hash{}, domainerrors.Preflight(domainerrors.ErrInvalidAmount, "")
	}
	client, err := u.client(eff.Bridge.DestChainID, dest)
	if err != nil {
		return common.Hash{}, err
	}

	var token common.Address
	if strings.TrimSpace(tokenRaw) == "" {
		binder := NewContractBinder(eff, u.clients, 0, u.receiptInterval)
		if token, err = binder.resolveDestToken(ctx, client, dest); err != nil {
			return common.Hash{}, err
		}
	} else if token, err = requireAddress("token", tokenRaw); err != nil {
		return common.Hash{}, err
	}

	hash, err := blockchain.NewReceiver(client, receiverAddr, signer).Sweep(ctx, token, to, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sweep: %s", txErrorMessage(err))
	}
	if err := u.waitSuccess(ctx, client, hash); err != nil {
		return hash, err
	}
	logger.Info(ctx, "Receiver swept", zap.String("tx_hash", hash.Hex()), zap.String("to", to.Hex()), zap.String("amount", amount.String()))
	return hash, nil
}

// Bridge runs one request synchronously from the wallet's current chain.
// The destination is always verified before anything is sent.
func (u *OpsUsecase) Bridge(ctx context.Context, wallet WalletProvider, in BridgeInput, onSignal SignalListener) (entities.LifecycleState, error) {
	eff, err := u.EffectiveNetworks(ctx)
	if err != nil {
		return entities.LifecycleState{}, err
	}
	dest, _ := eff.Destination()
	destClient, err := u.client(eff.Bridge.DestChainID, dest)
	if err != nil {
		return entities.LifecycleState{}, err
	}

	session := NewSessionUsecase(wallet, NewContractBinder(eff, u.clients, 0, u.receiptInterval), NewBalanceReader(eff.Bridge.TokenDecimals), eff, nil)
	if err := session.Rebind(ctx); err != nil {
		return entities.LifecycleState{}, err
	}
	defer session.Stop()

	account, _ := wallet.Account()
	req, err := NewBridgeRequest(eff, account, in)
	if err != nil {
		return entities.LifecycleState{}, err
	}

	notifier := NewNotifier(eff)
	if onSignal != nil {
		defer notifier.Subscribe(onSignal)()
	}
	orch := NewBridgeOrchestrator(session, notifier, OrchestratorOptions{
		Verifier: NewTrustVerifier(eff.Bridge.SourceChainName, NewEVMDestinationInspector(destClient)),
	})
	return orch.Execute(ctx, req)
}

func (u *OpsUsecase) tokenDecimals(ctx context.Context, token *blockchain.ERC20) int {
	if d, err := token.Decimals(ctx); err == nil && d > 0 {
		return int(d)
	}
	return u.networks.Bridge.TokenDecimals
}

func (u *OpsUsecase) waitSuccess(ctx context.Context, client *blockchain.EVMClient, hash common.Hash) error {
	receipt, err := blockchain.NewReceiptWaiter(client, u.receiptInterval).WaitReceipt(ctx, hash)
	if err != nil {
		return fmt.Errorf("wait %s: %w", hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", hash.Hex())
	}
	return nil
}

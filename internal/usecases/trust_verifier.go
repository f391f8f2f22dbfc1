package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
	"usdc-bridge.backend/internal/infrastructure/blockchain"
	"usdc-bridge.backend/pkg/logger"
)

// DestinationInspector reads what the destination chain knows about a receiver
type DestinationInspector interface {
	Code(ctx context.Context, receiver common.Address) ([]byte, error)
	TrustHashes(ctx context.Context, receiver common.Address) (chainHash, senderHash common.Hash, err error)
}

// TrustReport is the outcome of checking one receiver against one sender
type TrustReport struct {
	Receiver          common.Address `json:"receiver"`
	Sender            common.Address `json:"sender"`
	Deployed          bool           `json:"deployed"`
	TrustReadable     bool           `json:"trustReadable"`
	ChainOK           bool           `json:"chainOk"`
	SenderOK          bool           `json:"senderOk"`
	WantChainHash     common.Hash    `json:"wantChainHash"`
	WantSenderHash    common.Hash    `json:"wantSenderHash"`
	OnChainChainHash  common.Hash    `json:"onChainChainHash"`
	OnChainSenderHash common.Hash    `json:"onChainSenderHash"`
}

// Trusted reports whether the receiver accepts messages from the sender
func (r TrustReport) Trusted() bool {
	return r.Deployed && r.ChainOK && r.SenderOK
}

// ExpectedTrust returns the hashes a receiver stores for a trusted source.
// The sender address is hashed lowercased with its 0x prefix.
func ExpectedTrust(sourceChainName string, sender common.Address) (common.Hash, common.Hash) {
	chainHash := crypto.Keccak256Hash([]byte(sourceChainName))
	senderHash := crypto.Keccak256Hash([]byte(strings.ToLower(sender.Hex())))
	return chainHash, senderHash
}

// TrustVerifier checks that the destination receiver exists and trusts the bound sender
type TrustVerifier struct {
	sourceChainName string
	inspector       DestinationInspector
}

// NewTrustVerifier creates a verifier for the configured relay source chain name
func NewTrustVerifier(sourceChainName string, inspector DestinationInspector) *TrustVerifier {
	return &TrustVerifier{sourceChainName: sourceChainName, inspector: inspector}
}

// Check builds a full report without failing on a trust mismatch
func (v *TrustVerifier) Check(ctx context.Context, receiver, sender common.Address) (*TrustReport, error) {
	report := &TrustReport{Receiver: receiver, Sender: sender}
	report.WantChainHash, report.WantSenderHash = ExpectedTrust(v.sourceChainName, sender)

	code, err := v.inspector.Code(ctx, receiver)
	if err != nil {
		return nil, fmt.Errorf("read receiver code: %w", err)
	}
	report.Deployed = len(code) > 0
	if !report.Deployed {
		return report, nil
	}

	chainHash, senderHash, err := v.inspector.TrustHashes(ctx, receiver)
	if err != nil {
		logger.Warn(ctx, "Receiver trust fields not readable", zap.String("receiver", receiver.Hex()), zap.Error(err))
		return report, nil
	}
	report.TrustReadable = true
	report.OnChainChainHash = chainHash
	report.OnChainSenderHash = senderHash
	report.ChainOK = chainHash == report.WantChainHash
	report.SenderOK = senderHash == report.WantSenderHash
	return report, nil
}

// Verify rejects a request whose destination contract is missing or does not trust the bound sender
func (v *TrustVerifier) Verify(ctx context.Context, req *entities.BridgeRequest, snap SessionSnapshot) error {
	if !common.IsHexAddress(req.DestContractAddress) {
		return domainerrors.Preflight(domainerrors.ErrInvalidAddress, "Invalid destination contract address")
	}
	if snap.Contracts == nil || snap.Contracts.Sender == nil {
		return domainerrors.Preflight(domainerrors.ErrContractsUnavailable, "")
	}

	report, err := v.Check(ctx, common.HexToAddress(req.DestContractAddress), snap.Contracts.Sender.Address())
	if err != nil {
		return err
	}
	if !report.Deployed {
		return domainerrors.Preflight(domainerrors.ErrDestinationNotDeployed, "No contract deployed at the destination address")
	}
	if !report.TrustReadable {
		return domainerrors.Preflight(domainerrors.ErrTrustMismatch, "Destination contract does not expose its trusted source")
	}
	if !report.ChainOK || !report.SenderOK {
		logger.Warn(ctx, "Destination trust mismatch",
			zap.String("receiver", report.Receiver.Hex()),
			zap.String("sender", report.Sender.Hex()),
			zap.Bool("chain_ok", report.ChainOK),
			zap.Bool("sender_ok", report.SenderOK),
		)
		return domainerrors.Preflight(domainerrors.ErrTrustMismatch, "Destination contract does not trust this sender")
	}
	return nil
}

// EVMDestinationInspector reads receiver code and trust fields over RPC
type EVMDestinationInspector struct {
	client *blockchain.EVMClient
}

// NewEVMDestinationInspector inspects receivers on the chain client serves
func NewEVMDestinationInspector(client *blockchain.EVMClient) *EVMDestinationInspector {
	return &EVMDestinationInspector{client: client}
}

func (i *EVMDestinationInspector) Code(ctx context.Context, receiver common.Address) ([]byte, error) {
	return i.client.GetCode(ctx, receiver)
}

func (i *EVMDestinationInspector) TrustHashes(ctx context.Context, receiver common.Address) (common.Hash, common.Hash, error) {
	r := blockchain.NewReceiver(i.client, receiver, nil)
	chainHash, err := r.ExpectedSourceChainHash(ctx)
	if err != nil {
		return common.Hash{}, common.Hash{}, err
	}
	senderHash, err := r.ExpectedSourceAddressHash(ctx)
	if err != nil {
		return common.Hash{}, common.Hash{}, err
	}
	return chainHash, senderHash, nil
}

package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

var deployContract = bind.DeployContract

// Artifact is a compiled contract as emitted by the build toolchain
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads a compiled contract artifact
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	if strings.TrimPrefix(a.Bytecode, "0x") == "" {
		return nil, fmt.Errorf("artifact %s has no bytecode", path)
	}
	return &a, nil
}

// ParsedABI returns the artifact ABI, or fallback when the artifact carries none
func (a *Artifact) ParsedABI(fallback abi.ABI) (abi.ABI, error) {
	if len(a.ABI) == 0 || string(a.ABI) == "null" {
		return fallback, nil
	}
	return abi.JSON(bytes.NewReader(a.ABI))
}

// Deploy sends a contract creation transaction signed by signer
func Deploy(ctx context.Context, client *EVMClient, signer Signer, artifact *Artifact, fallback abi.ABI, args ...interface{}) (common.Address, common.Hash, error) {
	backend := client.Backend()
	if backend == nil {
		return common.Address{}, common.Hash{}, ErrReadOnly
	}
	parsed, err := artifact.ParsedABI(fallback)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("parse artifact abi: %w", err)
	}
	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}

	addr, tx, _, err := deployContract(opts, parsed, common.FromHex(artifact.Bytecode), backend, args...)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	return addr, tx.Hash(), nil
}

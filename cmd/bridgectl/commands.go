package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"usdc-bridge.backend/internal/config"
	"usdc-bridge.backend/internal/domain/entities"
	"usdc-bridge.backend/internal/infrastructure/blockchain"
	"usdc-bridge.backend/internal/infrastructure/repositories"
	"usdc-bridge.backend/internal/usecases"
	"usdc-bridge.backend/pkg/crypto"
)

type opsService interface {
	DeploySender(ctx context.Context, network, artifactPath string, signer blockchain.Signer) (*entities.Deployment, error)
	DeployReceiver(ctx context.Context, network, sourceNetwork, artifactPath string, signer blockchain.Signer) (*entities.Deployment, error)
	CheckSource(ctx context.Context, network string, account common.Address) (*usecases.SourceReport, error)
	CheckDest(ctx context.Context, sourceNetwork string, recipient common.Address, lookback uint64) (*usecases.DestReport, error)
	CheckConfirmations(ctx context.Context, network string, txHash common.Hash, threshold uint64) (*usecases.ConfirmationReport, error)
	WatchConfirmations(ctx context.Context, network string, txHash common.Hash, threshold uint64, interval time.Duration, onReport func(*usecases.ConfirmationReport)) error
	DecodeBridge(ctx context.Context, network string, txHash common.Hash) (*blockchain.BridgeCall, error)
	Sweep(ctx context.Context, signer blockchain.Signer, tokenRaw, toRaw, amountRaw string) (common.Hash, error)
	Bridge(ctx context.Context, wallet usecases.WalletProvider, in usecases.BridgeInput, onSignal usecases.SignalListener) (entities.LifecycleState, error)
}

var (
	newOps = func(c *cli.Context) (opsService, *config.Networks, func(), error) {
		networks, err := config.LoadNetworks(c.String(flagNetworks))
		if err != nil {
			return nil, nil, nil, err
		}
		clients := blockchain.NewClientFactory()
		ops := usecases.NewOpsUsecase(networks, clients,
			repositories.NewDeploymentFileRepository(c.String(flagDeployments)), c.Duration(flagReceiptInterval))
		return ops, networks, clients.Close, nil
	}
	newWallet = func(keys []string, chainID int64) (usecases.WalletProvider, error) {
		return blockchain.NewKeyedWallet(keys, chainID)
	}
	walletKeys = func() []string {
		return config.Load().Wallet.PrivateKeys
	}
	hashPassword = crypto.HashPasswordCost
	randomToken  = crypto.GenerateRandomToken
)

const generatedPasswordBytes = 16

var (
	errNetworkRequired = errors.New("--network is required")
	errTxHashRequired  = errors.New("transaction hash argument is required")
	errNoWalletKey     = errors.New("no private key: set --private-key, PRIVATE_KEY or WALLET_PRIVATE_KEYS")
)

type cmdEnv struct {
	ops      opsService
	networks *config.Networks
}

// withOps loads the networks document and runs fn with an ops usecase
func withOps(c *cli.Context, fn func(env cmdEnv) error) error {
	ops, networks, closeFn, err := newOps(c)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(cmdEnv{ops: ops, networks: networks})
}

// signerFor builds a wallet bound to the chain of the given network,
// so transactions are signed with the right chain id
func signerFor(c *cli.Context, networks *config.Networks, network string) (usecases.WalletProvider, error) {
	chainID, _, ok := networks.ByNetwork(network)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", network)
	}
	keys := walletKeys()
	if raw := strings.TrimSpace(c.String(flagPrivateKey)); raw != "" {
		keys = []string{raw}
	}
	if len(keys) == 0 {
		return nil, errNoWalletKey
	}
	wallet, err := newWallet(keys, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet keys: %w", err)
	}
	return wallet, nil
}

func requireNetwork(c *cli.Context) (string, error) {
	network := strings.TrimSpace(c.String(flagNetwork))
	if network == "" {
		return "", errNetworkRequired
	}
	return network, nil
}

func txHashArg(c *cli.Context) (common.Hash, error) {
	raw := strings.TrimSpace(c.Args().First())
	if raw == "" {
		return common.Hash{}, errTxHashRequired
	}
	b := common.FromHex(raw)
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", raw)
	}
	return common.BytesToHash(b), nil
}

func optionalAddress(name, raw string) (common.Address, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return common.Address{}, false, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, false, fmt.Errorf("invalid %s address %q", name, raw)
	}
	return common.HexToAddress(raw), true, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deploySenderCmd(c *cli.Context) error {
	network, err := requireNetwork(c)
	if err != nil {
		return err
	}
	return withOps(c, func(env cmdEnv) error {
		signer, err := signerFor(c, env.networks, network)
		if err != nil {
			return err
		}
		dep, err := env.ops.DeploySender(c.Context, network, c.String(flagArtifact), signer)
		if err != nil {
			return err
		}
		return printJSON(dep)
	})
}

func deployReceiverCmd(c *cli.Context) error {
	return withOps(c, func(env cmdEnv) error {
		network := strings.TrimSpace(c.String(flagNetwork))
		if network == "" {
			dest, ok := env.networks.Destination()
			if !ok {
				return errNetworkRequired
			}
			network = dest.Network
		}
		signer, err := signerFor(c, env.networks, network)
		if err != nil {
			return err
		}
		dep, err := env.ops.DeployReceiver(c.Context, network, c.String(flagSourceNetwork), c.String(flagArtifact), signer)
		if err != nil {
			return err
		}
		return printJSON(dep)
	})
}

func bridgeCmd(c *cli.Context) error {
	return runBridge(c, usecases.BridgeInput{
		Amount:    c.String(flagAmount),
		Recipient: c.String(flagRecipient),
		GasMode:   string(entities.GasModeNative),
		GasAmount: c.String(flagGas),
	})
}

func bridgeERC20GasCmd(c *cli.Context) error {
	return runBridge(c, usecases.BridgeInput{
		Amount:        c.String(flagAmount),
		Recipient:     c.String(flagRecipient),
		GasMode:       string(entities.GasModeToken),
		GasAmount:     c.String(flagGasFee),
		RefundAddress: c.String(flagRefund),
	})
}

func runBridge(c *cli.Context, input usecases.BridgeInput) error {
	network, err := requireNetwork(c)
	if err != nil {
		return err
	}
	return withOps(c, func(env cmdEnv) error {
		wallet, err := signerFor(c, env.networks, network)
		if err != nil {
			return err
		}
		state, err := env.ops.Bridge(c.Context, wallet, input, func(sig entities.Signal) {
			_ = printJSON(sig)
		})
		if err != nil {
			return err
		}
		if err := printJSON(state); err != nil {
			return err
		}
		if state.Phase == entities.PhaseFailed && state.ErrorInfo != nil {
			return fmt.Errorf("bridge failed: %s", state.ErrorInfo.Message)
		}
		return nil
	})
}

func checkSourceCmd(c *cli.Context) error {
	network, err := requireNetwork(c)
	if err != nil {
		return err
	}
	return withOps(c, func(env cmdEnv) error {
		account, ok, err := optionalAddress("account", c.String(flagAccount))
		if err != nil {
			return err
		}
		if !ok {
			wallet, err := signerFor(c, env.networks, network)
			if err != nil {
				return err
			}
			account, _ = wallet.Account()
		}
		report, err := env.ops.CheckSource(c.Context, network, account)
		if err != nil {
			return err
		}
		return printJSON(report)
	})
}

func checkDestCmd(c *cli.Context) error {
	return withOps(c, func(env cmdEnv) error {
		sourceNetwork := strings.TrimSpace(c.String(flagNetwork))
		recipient, ok, err := optionalAddress("recipient", c.String(flagRecipient))
		if err != nil {
			return err
		}
		if !ok {
			dest, found := env.networks.Destination()
			if !found {
				return errNetworkRequired
			}
			wallet, err := signerFor(c, env.networks, dest.Network)
			if err != nil {
				return err
			}
			recipient, _ = wallet.Account()
		}
		report, err := env.ops.CheckDest(c.Context, sourceNetwork, recipient, c.Uint64(flagLookback))
		if err != nil {
			return err
		}
		return printJSON(report)
	})
}

func checkConfirmationsCmd(c *cli.Context) error {
	network, err := requireNetwork(c)
	if err != nil {
		return err
	}
	txHash, err := txHashArg(c)
	if err != nil {
		return err
	}
	return withOps(c, func(env cmdEnv) error {
		threshold := c.Uint64(flagThreshold)
		if !c.Bool(flagWatch) {
			report, err := env.ops.CheckConfirmations(c.Context, network, txHash, threshold)
			if err != nil {
				return err
			}
			return printJSON(report)
		}
		return env.ops.WatchConfirmations(c.Context, network, txHash, threshold, c.Duration(flagInterval), func(r *usecases.ConfirmationReport) {
			_ = printJSON(struct {
				*usecases.ConfirmationReport
				Remaining uint64 `json:"remaining"`
			}{r, r.Remaining()})
		})
	})
}

func decodeBridgeCmd(c *cli.Context) error {
	network, err := requireNetwork(c)
	if err != nil {
		return err
	}
	txHash, err := txHashArg(c)
	if err != nil {
		return err
	}
	return withOps(c, func(env cmdEnv) error {
		call, err := env.ops.DecodeBridge(c.Context, network, txHash)
		if err != nil {
			return err
		}
		return printJSON(call)
	})
}

func sweepCmd(c *cli.Context) error {
	return withOps(c, func(env cmdEnv) error {
		dest, ok := env.networks.Destination()
		if !ok {
			return errNetworkRequired
		}
		signer, err := signerFor(c, env.networks, dest.Network)
		if err != nil {
			return err
		}
		hash, err := env.ops.Sweep(c.Context, signer, c.String(flagToken), c.String(flagTo), c.String(flagAmount))
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"txHash": hash.Hex()})
	})
}

func hashPasswordCmd(c *cli.Context) error {
	password := c.String(flagPassword)
	if password == "" {
		generated, err := randomToken(generatedPasswordBytes)
		if err != nil {
			return err
		}
		password = generated
		if _, err := fmt.Fprintf(stdout, "password: %s\n", password); err != nil {
			return err
		}
	}
	hash, err := hashPassword(password, c.Int(flagCost))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}

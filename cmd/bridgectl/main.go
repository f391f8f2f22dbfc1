package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

)

const appName = "bridgectl"

const (
	flagNetworks        = "networks"
	flagDeployments     = "deployments"
	flagNetwork         = "network"
	flagPrivateKey      = "private-key"
	flagReceiptInterval = "receipt-interval"
	flagArtifact        = "artifact"
	flagSourceNetwork   = "source-network"
	flagAmount          = "amount"
	flagRecipient       = "recipient"
	flagGas             = "gas"
	flagGasFee          = "gas-fee"
	flagRefund          = "refund"
	flagAccount         = "account"
	flagLookback        = "lookback"
	flagThreshold       = "threshold"
	flagWatch           = "watch"
	flagInterval        = "interval"
	flagToken           = "token"
	flagTo              = "to"
	flagPassword        = "password"
	flagCost            = "cost"
)

var (
	stdout     io.Writer = os.Stdout
	loadDotenv           = godotenv.Load
)

func newApp() *cli.App {
	networksFlag := &cli.StringFlag{
		Name:    flagNetworks,
		Usage:   "Networks document (JSON)",
		EnvVars: []string{"NETWORKS_FILE"},
		Value:   "networks.json",
	}
	deploymentsFlag := &cli.StringFlag{
		Name:    flagDeployments,
		Usage:   "Directory holding <network>.json deployment records",
		EnvVars: []string{"DEPLOYMENTS_DIR"},
		Value:   "deployments",
	}
	networkFlag := &cli.StringFlag{
		Name:    flagNetwork,
		Aliases: []string{"n"},
		Usage:   "Host network the command runs against, e.g. sepolia or fuji",
		EnvVars: []string{"NETWORK"},
	}
	privateKeyFlag := &cli.StringFlag{
		Name:    flagPrivateKey,
		Usage:   "Hex private key of the signing account",
		EnvVars: []string{"PRIVATE_KEY"},
	}
	receiptIntervalFlag := &cli.DurationFlag{
		Name:    flagReceiptInterval,
		Usage:   "Receipt polling interval",
		EnvVars: []string{"RECEIPT_POLL_INTERVAL"},
		Value:   2 * time.Second,
	}
	artifactFlag := &cli.StringFlag{
		Name:     flagArtifact,
		Usage:    "Compiled contract artifact with abi and bytecode",
		Required: true,
	}
	amountFlag := &cli.StringFlag{
		Name:     flagAmount,
		Usage:    "Token amount in human units",
		EnvVars:  []string{"AMOUNT"},
		Required: true,
	}
	recipientFlag := &cli.StringFlag{
		Name:    flagRecipient,
		Usage:   "Destination recipient, defaults to the signing account",
		EnvVars: []string{"RECIPIENT"},
	}

	return &cli.App{
		Name:  appName,
		Usage: "Operate the USDC bridge contracts",
		Flags: []cli.Flag{
			networksFlag,
			deploymentsFlag,
			networkFlag,
			privateKeyFlag,
			receiptIntervalFlag,
		},
		Commands: []*cli.Command{
			{
				Name:   "deploy-sender",
				Usage:  "Deploy the Sender on a source network and record it",
				Flags:  []cli.Flag{artifactFlag},
				Action: deploySenderCmd,
			},
			{
				Name:  "deploy-receiver",
				Usage: "Deploy the Receiver on the destination network, trusting a source Sender",
				Flags: []cli.Flag{
					artifactFlag,
					&cli.StringFlag{Name: flagSourceNetwork, Usage: "Source network whose Sender is trusted", Value: "sepolia"},
				},
				Action: deployReceiverCmd,
			},
			{
				Name:  "bridge",
				Usage: "Bridge tokens paying relay gas in the native currency",
				Flags: []cli.Flag{
					amountFlag,
					recipientFlag,
					&cli.StringFlag{Name: flagGas, Usage: "Native gas prepayment", EnvVars: []string{"GAS_ETH"}},
				},
				Action: bridgeCmd,
			},
			{
				Name:  "bridge-erc20-gas",
				Usage: "Bridge tokens paying relay gas in the bridged token",
				Flags: []cli.Flag{
					amountFlag,
					recipientFlag,
					&cli.StringFlag{Name: flagGasFee, Usage: "Token gas fee", EnvVars: []string{"GAS_FEE"}, Required: true},
					&cli.StringFlag{Name: flagRefund, Usage: "Refund address for unused gas", EnvVars: []string{"REFUND_ADDRESS"}},
				},
				Action: bridgeERC20GasCmd,
			},
			{
				Name:   "check-source",
				Usage:  "Show token balance and allowance to the Sender",
				Flags:  []cli.Flag{&cli.StringFlag{Name: flagAccount, Usage: "Account to inspect, defaults to the signing account"}},
				Action: checkSourceCmd,
			},
			{
				Name:  "check-dest",
				Usage: "Show destination balances, receiver trust and recent deliveries",
				Flags: []cli.Flag{
					recipientFlag,
					&cli.Uint64Flag{Name: flagLookback, Usage: "Blocks to search for Received events"},
				},
				Action: checkDestCmd,
			},
			{
				Name:      "check-confirmations",
				Usage:     "Show how many confirmations a source transaction has",
				ArgsUsage: "<tx-hash>",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: flagThreshold, Usage: "Confirmations the relay waits for"},
					&cli.BoolFlag{Name: flagWatch, Aliases: []string{"w"}, Usage: "Poll until the threshold is reached"},
					&cli.DurationFlag{Name: flagInterval, Usage: "Polling interval with --watch", Value: 12 * time.Second},
				},
				Action: checkConfirmationsCmd,
			},
			{
				Name:      "decode-bridge",
				Usage:     "Decode the Sender call of a transaction",
				ArgsUsage: "<tx-hash>",
				Action:    decodeBridgeCmd,
			},
			{
				Name:  "sweep",
				Usage: "Move tokens held by the Receiver to another address (owner only)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagToken, Usage: "Token to sweep, defaults to the bridged token"},
					&cli.StringFlag{Name: flagTo, Usage: "Receiving address", Required: true},
					&cli.StringFlag{Name: flagAmount, Usage: "Amount in human units", Required: true},
				},
				Action: sweepCmd,
			},
			{
				Name:  "hash-password",
				Usage: "Print a bcrypt hash for OPERATOR_PASSWORD_HASH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagPassword, Usage: "Password to hash, generated when empty", EnvVars: []string{"OPERATOR_PASSWORD"}},
				},
				Action: hashPasswordCmd,
			},
		},
	}
}

func main() {
	// .env must be loaded before flags read their env vars
	_ = loadDotenv()
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(fmt.Errorf("%s: %w", appName, err))
	}
}

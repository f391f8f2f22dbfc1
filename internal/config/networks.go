package config

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	RoleSource      = "source"
	RoleDestination = "destination"
)

// ChainConfig is one entry of the networks document, keyed by chain id
type ChainConfig struct {
	Network       string `mapstructure:"network" json:"network"`
	Name          string `mapstructure:"name" json:"name"`
	Role          string `mapstructure:"role" json:"role"`
	RPCURL        string `mapstructure:"rpcUrl" json:"rpcUrl"`
	ExplorerTxURL string `mapstructure:"explorerTxUrl" json:"explorerTxUrl"`
	Token         string `mapstructure:"token" json:"token"`
	Sender        string `mapstructure:"sender" json:"sender,omitempty"`
	Receiver      string `mapstructure:"receiver" json:"receiver,omitempty"`
	Gateway       string `mapstructure:"gateway" json:"gateway,omitempty"`
	GasService    string `mapstructure:"gasService" json:"gasService,omitempty"`
}

// BridgeDefaults holds the bridge-wide constants
type BridgeDefaults struct {
	DestChain             string   `mapstructure:"destChain" json:"destChain"`
	DestChainID           int64    `mapstructure:"destChainId" json:"destChainId"`
	SourceChainName       string   `mapstructure:"sourceChainName" json:"sourceChainName"`
	DefaultGasEth         string   `mapstructure:"defaultGasEth" json:"defaultGasEth"`
	TokenDecimals         int      `mapstructure:"tokenDecimals" json:"tokenDecimals"`
	TokenSymbols          []string `mapstructure:"tokenSymbols" json:"tokenSymbols"`
	RelayTxURL            string   `mapstructure:"relayTxUrl" json:"relayTxUrl"`
	LookbackBlocks        uint64   `mapstructure:"lookbackBlocks" json:"lookbackBlocks"`
	LogChunkSize          uint64   `mapstructure:"logChunkSize" json:"logChunkSize"`
	ConfirmationThreshold uint64   `mapstructure:"confirmationThreshold" json:"confirmationThreshold"`
}

// Networks is the static networks document. Loaded once, never mutated afterwards.
type Networks struct {
	Bridge BridgeDefaults         `mapstructure:"bridge" json:"bridge"`
	Chains map[string]ChainConfig `mapstructure:"chains" json:"chains"`
}

// LoadNetworks reads the networks document from a JSON file
func LoadNetworks(path string) (*Networks, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read networks file %s: %w", path, err)
	}
	return decodeNetworks(v)
}

// ParseNetworks decodes a networks document held in memory
func ParseNetworks(raw []byte) (*Networks, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("parse networks: %w", err)
	}
	return decodeNetworks(v)
}

func decodeNetworks(v *viper.Viper) (*Networks, error) {
	var n Networks
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&n, hooks); err != nil {
		return nil, fmt.Errorf("decode networks: %w", err)
	}
	n.applyDefaults()
	if err := n.validate(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *Networks) applyDefaults() {
	if n.Bridge.DestChain == "" {
		n.Bridge.DestChain = "Avalanche"
	}
	if n.Bridge.DefaultGasEth == "" {
		n.Bridge.DefaultGasEth = "0.03"
	}
	if n.Bridge.TokenDecimals <= 0 {
		n.Bridge.TokenDecimals = 6
	}
	if len(n.Bridge.TokenSymbols) == 0 {
		n.Bridge.TokenSymbols = []string{"aUSDC", "axlUSDC"}
	}
	if n.Bridge.LookbackBlocks == 0 {
		n.Bridge.LookbackBlocks = 5000
	}
	if n.Bridge.LogChunkSize == 0 {
		n.Bridge.LogChunkSize = 500
	}
	if n.Bridge.ConfirmationThreshold == 0 {
		n.Bridge.ConfirmationThreshold = 100
	}
}

func (n *Networks) validate() error {
	if len(n.Chains) == 0 {
		return fmt.Errorf("networks: no chains configured")
	}
	for key, chain := range n.Chains {
		if _, err := strconv.ParseInt(key, 10, 64); err != nil {
			return fmt.Errorf("networks: chain key %q is not a chain id", key)
		}
		if chain.Role != RoleSource && chain.Role != RoleDestination {
			return fmt.Errorf("networks: chain %s has unknown role %q", key, chain.Role)
		}
	}
	if len(n.SourceChainIDs()) == 0 {
		return fmt.Errorf("networks: no source chain configured")
	}
	if _, ok := n.Chain(n.Bridge.DestChainID); !ok {
		return fmt.Errorf("networks: destination chain %d is not configured", n.Bridge.DestChainID)
	}
	if strings.TrimSpace(n.Bridge.SourceChainName) == "" {
		return fmt.Errorf("networks: bridge.sourceChainName is required")
	}
	return nil
}

// Chain returns the chain entry for a chain id
func (n *Networks) Chain(chainID int64) (ChainConfig, bool) {
	chain, ok := n.Chains[strconv.FormatInt(chainID, 10)]
	return chain, ok
}

// IsSupportedSource reports whether chainID is whitelisted as a bridge source
func (n *Networks) IsSupportedSource(chainID int64) bool {
	chain, ok := n.Chain(chainID)
	return ok && chain.Role == RoleSource
}

// SourceChainIDs returns the whitelisted source chains in ascending order
func (n *Networks) SourceChainIDs() []int64 {
	var ids []int64
	for key, chain := range n.Chains {
		if chain.Role != RoleSource {
			continue
		}
		if id, err := strconv.ParseInt(key, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Destination returns the destination chain entry
func (n *Networks) Destination() (ChainConfig, bool) {
	return n.Chain(n.Bridge.DestChainID)
}

// ByNetwork resolves a host network name such as "sepolia" or "fuji"
func (n *Networks) ByNetwork(network string) (int64, ChainConfig, bool) {
	for key, chain := range n.Chains {
		if strings.EqualFold(chain.Network, network) || key == network {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				continue
			}
			return id, chain, true
		}
	}
	return 0, ChainConfig{}, false
}

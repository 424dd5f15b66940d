package wallet

import (
	"fmt"
	"strings"
)

type Network string

const (
	Devnet      Network = "devnet"
	Testnet     Network = "testnet"
	MainnetBeta Network = "mainnet-beta"
)

// SupportedWallets are the browser wallets the page offers.
var SupportedWallets = []string{"Phantom", "Solflare"}

// ParseNetwork defaults to devnet when s is empty.
func ParseNetwork(s string) (Network, error) {
	switch n := Network(strings.ToLower(strings.TrimSpace(s))); n {
	case "":
		return Devnet, nil
	case Devnet, Testnet, MainnetBeta:
		return n, nil
	default:
		return "", fmt.Errorf("unknown solana network %q (valid networks are devnet|testnet|mainnet-beta)", s)
	}
}

// ClusterURL is the public RPC endpoint for n.
func ClusterURL(n Network) string {
	return "https://api." + string(n) + ".solana.com"
}

// Endpoint is override when set, otherwise the cluster URL.
func Endpoint(n Network, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	return ClusterURL(n)
}

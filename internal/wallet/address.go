package wallet

import (
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
)

type Chain string

const (
	ChainSolana   Chain = "solana"
	ChainEthereum Chain = "ethereum"
)

func (c Chain) String() string { return string(c) }

// ParseChain accepts the chain name or its ticker, in any case.
func ParseChain(s string) (Chain, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "solana", "sol":
		return ChainSolana, true
	case "ethereum", "eth":
		return ChainEthereum, true
	default:
		return "", false
	}
}

// Kind is what a wallet card value turned out to be.
type Kind string

const (
	KindAddress Kind = "address"
	KindDomain  Kind = "domain"
	KindInvalid Kind = "invalid"
)

const solanaKeySize = 32

var (
	ethAddressRE   = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	ensNameRE      = regexp.MustCompile(`(?i)^[a-z0-9-]+\.eth$`)
	solanaDomainRE = regexp.MustCompile(`(?i)^[a-z0-9-]+\.sol$`)
)

// IsValidSolanaAddress reports whether s is a base58 encoded 32 byte public key.
func IsValidSolanaAddress(s string) bool {
	if s == "" || len(s) > 44 {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == solanaKeySize
}

func IsValidEthereumAddress(s string) bool { return ethAddressRE.MatchString(s) }

func IsValidENSName(s string) bool { return ensNameRE.MatchString(s) }

func IsValidSolanaDomain(s string) bool { return solanaDomainRE.MatchString(s) }

// Classify reports whether value is a raw address or a name service domain
// for chain.
func Classify(chain Chain, value string) Kind {
	switch chain {
	case ChainSolana:
		if IsValidSolanaAddress(value) {
			return KindAddress
		}
		if IsValidSolanaDomain(value) {
			return KindDomain
		}
	case ChainEthereum:
		if IsValidEthereumAddress(value) {
			return KindAddress
		}
		if IsValidENSName(value) {
			return KindDomain
		}
	}
	return KindInvalid
}

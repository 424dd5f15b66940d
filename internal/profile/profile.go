package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vardo/vardo-web/internal/wallet"
	"github.com/vardo/vardo-web/internal/xerrors"
)

// ErrInvalidProfile is wrapped by every Validate failure.
var ErrInvalidProfile = errors.New("invalid profile")

// Social is one entry in the links row.
type Social struct {
	Label string `json:"label"`
	Href  string `json:"href"`
	Icon  string `json:"icon,omitempty"`
}

type Profile struct {
	Version  string        `json:"version,omitempty"`
	Headline string        `json:"headline"`
	Tagline  string        `json:"tagline,omitempty"`
	Wallets  []wallet.Card `json:"wallets"`
	Socials  []Social      `json:"socials,omitempty"`
}

// Default is the profile served until a published document is loaded.
func Default() Profile {
	return Profile{
		Version:  "builtin",
		Headline: "Web3 Developer",
		Tagline:  "Building the future of Solana & Decentralized Web",
		Wallets: []wallet.Card{
			{Chain: wallet.ChainSolana, Label: "Solana", Address: "vardo.sol"},
			{Chain: wallet.ChainEthereum, Label: "Ethereum", Address: "vardo.eth"},
		},
		Socials: []Social{
			{Label: "GitHub", Href: "https://github.com/vardo", Icon: "github"},
			{Label: "Telegram", Href: "https://t.me/vardo", Icon: "telegram"},
			{Label: "Website", Href: "https://vardo.example.com", Icon: "globe"},
		},
	}
}

// Validate reports every problem with the profile joined into one error.
func (p Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Headline) == "" {
		errs = append(errs, fmt.Errorf("%w: headline is empty", ErrInvalidProfile))
	}
	seen := make(map[wallet.Chain]bool, len(p.Wallets))
	for i, c := range p.Wallets {
		if _, ok := wallet.ParseChain(string(c.Chain)); !ok {
			errs = append(errs, fmt.Errorf("%w: wallets[%d]: unknown chain %q", ErrInvalidProfile, i, c.Chain))
			continue
		}
		if seen[c.Chain] {
			errs = append(errs, fmt.Errorf("%w: wallets[%d]: duplicate chain %s", ErrInvalidProfile, i, c.Chain))
		}
		seen[c.Chain] = true
		if !c.Valid() {
			errs = append(errs, fmt.Errorf("%w: wallets[%d]: %q is not a %s address or domain", ErrInvalidProfile, i, c.Address, c.Chain))
		}
	}
	for i, s := range p.Socials {
		if strings.TrimSpace(s.Label) == "" {
			errs = append(errs, fmt.Errorf("%w: socials[%d]: label is empty", ErrInvalidProfile, i))
		}
		if !wallet.IsValidURL(s.Href) {
			errs = append(errs, fmt.Errorf("%w: socials[%d]: %q is not an absolute http(s) url", ErrInvalidProfile, i, s.Href))
		}
	}
	return errors.Join(errs...)
}

// Card returns the wallet card for chain.
func (p Profile) Card(chain wallet.Chain) (wallet.Card, bool) {
	for _, c := range p.Wallets {
		if c.Chain == chain {
			return c, true
		}
	}
	return wallet.Card{}, false
}

// Decode parses a profile document strictly: unknown fields and trailing
// data are errors. The result is validated.
func Decode(data []byte) (Profile, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var p Profile
	if err := dec.Decode(&p); err != nil {
		return Profile{}, xerrors.Wrap(err, "decode profile")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Profile{}, xerrors.New("decode profile: trailing data after document")
	}
	if err := p.Validate(); err != nil {
		return Profile{}, xerrors.WithStack(err)
	}
	return p, nil
}

package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/vardo/vardo-web/internal/wallet"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	p := Default()
	if err := p.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if p.Headline != "Web3 Developer" {
		t.Fatalf("headline = %q", p.Headline)
	}
	if _, ok := p.Card(wallet.ChainSolana); !ok {
		t.Fatal("default profile has no solana card")
	}
	if _, ok := p.Card(wallet.ChainEthereum); !ok {
		t.Fatal("default profile has no ethereum card")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{"ok", func(*Profile) {}, ""},
		{"empty headline", func(p *Profile) { p.Headline = "  " }, "headline is empty"},
		{"bad eth address", func(p *Profile) { p.Wallets[1].Address = "0x123" }, "not a ethereum address"},
		{"unknown chain", func(p *Profile) { p.Wallets[0].Chain = "bitcoin" }, "unknown chain"},
		{"duplicate chain", func(p *Profile) { p.Wallets = append(p.Wallets, p.Wallets[0]) }, "duplicate chain"},
		{"javascript href", func(p *Profile) { p.Socials[0].Href = "javascript:alert(1)" }, "not an absolute http(s) url"},
		{"empty social label", func(p *Profile) { p.Socials[2].Label = "" }, "label is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := Default()
			p.Wallets = append([]wallet.Card(nil), p.Wallets...)
			p.Socials = append([]Social(nil), p.Socials...)
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidProfile) {
				t.Fatalf("err does not wrap ErrInvalidProfile: %v", err)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	t.Parallel()
	p := Profile{
		Wallets: []wallet.Card{{Chain: wallet.ChainSolana, Address: "not base58 0OIl"}},
		Socials: []Social{{Label: "x", Href: "ftp://example.com"}},
	}
	err := p.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"headline", "wallets[0]", "socials[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()
	valid := `{"version":"7","headline":"Builder","wallets":[{"chain":"solana","label":"SOL","address":"vardo.sol"}]}`
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"valid", valid, false},
		{"unknown field", `{"headline":"x","wallets":[],"extra":1}`, true},
		{"trailing data", valid + `{}`, true},
		{"not json", `headline: x`, true},
		{"fails validation", `{"headline":"","wallets":[]}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := Decode([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && p.Version != "7" {
				t.Fatalf("version = %q", p.Version)
			}
		})
	}
}

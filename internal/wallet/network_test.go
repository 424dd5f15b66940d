package wallet

import "testing"

func TestParseNetwork(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    Network
		wantErr bool
	}{
		{"", Devnet, false},
		{"devnet", Devnet, false},
		{"Testnet", Testnet, false},
		{" mainnet-beta ", MainnetBeta, false},
		{"mainnet", "", true},
		{"localnet", "", true},
	}
	for _, tt := range tests {
		got, err := ParseNetwork(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseNetwork(%q) = %q, %v; want %q, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestEndpoint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n        Network
		override string
		want     string
	}{
		{Devnet, "", "https://api.devnet.solana.com"},
		{Testnet, "", "https://api.testnet.solana.com"},
		{MainnetBeta, "  ", "https://api.mainnet-beta.solana.com"},
		{MainnetBeta, "https://rpc.example.com", "https://rpc.example.com"},
	}
	for _, tt := range tests {
		if got := Endpoint(tt.n, tt.override); got != tt.want {
			t.Errorf("Endpoint(%s, %q) = %q, want %q", tt.n, tt.override, got, tt.want)
		}
	}
}

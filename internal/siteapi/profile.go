package siteapi

import (
	"net/http"
	"time"

	"github.com/vardo/vardo-web/internal/profile"
	"github.com/vardo/vardo-web/internal/wallet"
)

type walletView struct {
	Chain   wallet.Chain `json:"chain"`
	Label   string       `json:"label"`
	Address string       `json:"address"`
	Display string       `json:"display"`
	Kind    wallet.Kind  `json:"kind"`
}

type metaView struct {
	Version  string         `json:"version"`
	SHA256   string         `json:"sha256,omitempty"`
	Source   profile.Source `json:"source"`
	LoadedAt time.Time      `json:"loaded_at"`
	Signed   bool           `json:"signed"`
}

type ProfileResponse struct {
	Headline string           `json:"headline"`
	Tagline  string           `json:"tagline,omitempty"`
	Wallets  []walletView     `json:"wallets"`
	Socials  []profile.Social `json:"socials"`
	Meta     metaView         `json:"meta"`
}

// HandleProfile serves the active profile with display-ready addresses.
func (api *API) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var snap *profile.Snapshot
	ok := false
	if api.profiles != nil {
		snap, ok = api.profiles.Get()
	}
	if !ok {
		api.writeError(ctx, w, http.StatusServiceUnavailable, "no profile loaded")
		return
	}

	p := snap.Profile
	resp := ProfileResponse{
		Headline: p.Headline,
		Tagline:  p.Tagline,
		Wallets:  make([]walletView, 0, len(p.Wallets)),
		Socials:  p.Socials,
		Meta: metaView{
			Version:  snap.Meta.Version,
			SHA256:   snap.Meta.SHA256,
			Source:   snap.Meta.Source,
			LoadedAt: snap.Meta.LoadedAt.UTC().Truncate(time.Second),
			Signed:   snap.Meta.Signed,
		},
	}
	if resp.Socials == nil {
		resp.Socials = []profile.Social{}
	}
	for _, c := range p.Wallets {
		resp.Wallets = append(resp.Wallets, walletView{
			Chain:   c.Chain,
			Label:   c.Label,
			Address: c.Address,
			Display: c.Display(),
			Kind:    wallet.Classify(c.Chain, c.Address),
		})
	}

	api.writeJSON(ctx, w, http.StatusOK, resp)
}

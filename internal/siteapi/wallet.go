package siteapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vardo/vardo-web/internal/wallet"
)

// HandleCopy records that a visitor copied a wallet address. The clipboard
// write itself happens in the browser.
func (api *API) HandleCopy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	chain, ok := wallet.ParseChain(chi.URLParam(r, "chain"))
	if !ok {
		api.writeError(ctx, w, http.StatusNotFound, "unknown chain")
		return
	}
	if api.profiles == nil {
		api.writeError(ctx, w, http.StatusServiceUnavailable, "no profile loaded")
		return
	}
	snap, ok := api.profiles.Get()
	if !ok {
		api.writeError(ctx, w, http.StatusServiceUnavailable, "no profile loaded")
		return
	}
	if _, ok := snap.Profile.Card(chain); !ok {
		api.writeError(ctx, w, http.StatusNotFound, "no wallet for chain")
		return
	}

	api.metrics.IncWalletCopy(chain.String())
	api.logger.Debug(ctx, "wallet address copied", "chain", chain)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}

type ValidateRequest struct {
	Chain string `json:"chain"`
	Value string `json:"value"`
}

type ValidateResponse struct {
	Valid     bool        `json:"valid"`
	Kind      wallet.Kind `json:"kind"`
	Display   string      `json:"display,omitempty"`
	Sanitized string      `json:"sanitized"`
}

// HandleValidate classifies a user-supplied address or name.
func (api *API) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		api.writeError(ctx, w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}

	var req ValidateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.writeError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		api.writeError(ctx, w, http.StatusBadRequest, "malformed request body")
		return
	}

	chain, ok := wallet.ParseChain(req.Chain)
	if !ok {
		api.writeError(ctx, w, http.StatusBadRequest, "unknown chain")
		return
	}

	kind := wallet.Classify(chain, req.Value)
	resp := ValidateResponse{
		Valid:     kind != wallet.KindInvalid,
		Kind:      kind,
		Sanitized: wallet.SanitizeInput(req.Value),
	}
	if resp.Valid {
		resp.Display = wallet.Card{Chain: chain, Address: req.Value}.Display()
	}

	api.metrics.IncValidation(chain.String(), string(kind))
	api.writeJSON(ctx, w, http.StatusOK, resp)
}

type NetworkResponse struct {
	Network  wallet.Network `json:"network"`
	Endpoint string         `json:"endpoint"`
	Wallets  []string       `json:"wallets"`
}

// HandleNetwork tells the page which Solana cluster to connect wallets to.
func (api *API) HandleNetwork(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(r.Context(), w, http.StatusOK, NetworkResponse{
		Network:  api.network,
		Endpoint: wallet.Endpoint(api.network, api.rpcURL),
		Wallets:  wallet.SupportedWallets,
	})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// KeyHandler serves the keys of one profile.
type KeyHandler struct {
	Vault domain.VaultService
}

func NewKeyHandler(vault domain.VaultService) *KeyHandler {
	return &KeyHandler{Vault: vault}
}

// List handles GET /api/profiles/{profile}/keys. With ?masked=true the
// values are masked.
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	profile := pathParam(r, "profile")
	masked, _ := strconv.ParseBool(r.URL.Query().Get("masked"))

	var (
		keys []domain.KeyEntry
		err  error
	)
	if masked {
		keys, err = h.Vault.MaskedKeys(r.Context(), profile)
	} else {
		keys, err = h.Vault.Keys(r.Context(), profile)
	}
	if err != nil {
		HandleError(w, r, err, "Failed to load keys")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// Add handles POST /api/profiles/{profile}/keys
func (h *KeyHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddKeyRequest
	if !decodeRequest(w, r, &req, "Missing key name or value") {
		return
	}

	if err := h.Vault.AddKey(r.Context(), pathParam(r, "profile"), req.Name, *req.Value); err != nil {
		HandleError(w, r, err, "Failed to save key")
		return
	}
	writeMessage(w, "Key added successfully")
}

// Update handles PUT /api/profiles/{profile}/keys/{key}
func (h *KeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateKeyRequest
	if !decodeRequest(w, r, &req, "Missing key value") {
		return
	}

	if err := h.Vault.UpdateKey(r.Context(), pathParam(r, "profile"), pathParam(r, "key"), *req.Value); err != nil {
		HandleError(w, r, err, "Failed to update key")
		return
	}
	writeMessage(w, "Key updated successfully")
}

// Delete handles DELETE /api/profiles/{profile}/keys/{key}
func (h *KeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Vault.DeleteKey(r.Context(), pathParam(r, "profile"), pathParam(r, "key")); err != nil {
		HandleError(w, r, err, "Failed to save changes")
		return
	}
	writeMessage(w, "Key deleted successfully")
}

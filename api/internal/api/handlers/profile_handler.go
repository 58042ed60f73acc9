package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// ProfileHandler serves profile-level operations.
type ProfileHandler struct {
	Vault domain.VaultService
}

func NewProfileHandler(vault domain.VaultService) *ProfileHandler {
	return &ProfileHandler{Vault: vault}
}

// List handles GET /api/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.Vault.ListProfiles(r.Context())
	if err != nil {
		HandleError(w, r, err, "Failed to list profiles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// Create handles POST /api/profiles
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !decodeRequest(w, r, &req, "Missing profile name") {
		return
	}

	if err := h.Vault.CreateProfile(r.Context(), req.Name); err != nil {
		HandleError(w, r, err, "Failed to create profile")
		return
	}
	writeMessage(w, "Profile created successfully")
}

// Delete handles DELETE /api/profiles/{profile}
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Vault.DeleteProfile(r.Context(), pathParam(r, "profile")); err != nil {
		HandleError(w, r, err, "Failed to delete profile")
		return
	}
	writeMessage(w, "Profile deleted successfully")
}

// Export handles GET /api/profiles/{profile}/export
func (h *ProfileHandler) Export(w http.ResponseWriter, r *http.Request) {
	out, err := h.Vault.Export(r.Context(), pathParam(r, "profile"))
	if err != nil {
		HandleError(w, r, err, "Failed to export profile")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, out)
}

// Import handles POST /api/profiles/{profile}/import with a dotenv body.
func (h *ProfileHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		writeError(w, http.StatusBadRequest, "Missing import data")
		return
	}

	n, err := h.Vault.Import(r.Context(), pathParam(r, "profile"), string(body))
	if err != nil {
		HandleError(w, r, err, "Failed to import keys")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// Reconcile handles POST /api/profiles/{profile}/reconcile
func (h *ProfileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Vault.Reconcile(r.Context(), pathParam(r, "profile"))
	if err != nil {
		HandleError(w, r, err, "Failed to reconcile profile")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

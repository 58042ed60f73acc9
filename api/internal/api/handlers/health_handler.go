package handlers

import (
	"net/http"

	"github.com/irgordon/ak/api/internal/config"
	"github.com/irgordon/ak/api/internal/core/domain"
)

type HealthResponse struct {
	Status              string `json:"status"`
	ConfigDir           string `json:"config_dir"`
	GPGAvailable        bool   `json:"gpg_available"`
	EncryptionAvailable bool   `json:"encryption_available"`
	Backend             string `json:"backend"`
	InstanceID          string `json:"instance_id"`
}

// HealthHandler reports the capability snapshot taken at startup.
// gpg_available is the raw probe result; encryption_available is whether
// the active backend will encrypt.
type HealthHandler struct {
	cfg *config.Config
	enc domain.Encryptor
}

func NewHealthHandler(cfg *config.Config, enc domain.Encryptor) *HealthHandler {
	return &HealthHandler{cfg: cfg, enc: enc}
}

// Check handles GET /api/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:              "healthy",
		ConfigDir:           h.cfg.ConfigDir,
		GPGAvailable:        h.cfg.GPGAvailable,
		EncryptionAvailable: h.enc.Available(),
		Backend:             h.enc.Name(),
		InstanceID:          h.cfg.InstanceID,
	})
}

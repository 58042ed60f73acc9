package handlers

import (
	"net/http"

	"github.com/irgordon/ak/api/internal/core/services"
)

// ListServices handles GET /api/services
func ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": services.BuiltinServices()})
}

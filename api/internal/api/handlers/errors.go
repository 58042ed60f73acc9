package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/irgordon/ak/api/internal/core/domain"
	"github.com/irgordon/ak/api/internal/core/services"
)

// MessageResponse is the body of every successful mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleError maps domain signals to HTTP statuses. Anything unrecognised is
// logged and answered with 500 and the operation's fallback message.
func HandleError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verrs validator.ValidationErrors

	switch {
	case errors.Is(err, domain.ErrProfileExists):
		writeError(w, http.StatusConflict, "Profile already exists")
	case errors.Is(err, domain.ErrKeyNotFound):
		writeError(w, http.StatusNotFound, "Key not found")
	case errors.Is(err, domain.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "Profile not found")
	case errors.Is(err, domain.ErrDefaultProfileProtected):
		writeError(w, http.StatusBadRequest, "Cannot delete default profile")
	case errors.Is(err, domain.ErrInvalidProfileName):
		writeError(w, http.StatusBadRequest, "Invalid profile name")
	case errors.Is(err, domain.ErrInvalidKeyName):
		writeError(w, http.StatusBadRequest, "Invalid key name")
	case errors.Is(err, domain.ErrContentsUnreadable):
		writeError(w, http.StatusServiceUnavailable, "Profile contents could not be decrypted")
	case errors.Is(err, services.ErrInvalidImport):
		writeError(w, http.StatusBadRequest, "Invalid dotenv data")
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, "Invalid request")
	default:
		// 🛡️ Log the real error, return only the generic operation message
		slog.Default().ErrorContext(r.Context(), fallback,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: msg})
}

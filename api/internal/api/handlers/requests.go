package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// Use a single instance of Validate, it caches struct info
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterValidation("profilename", func(fl validator.FieldLevel) bool {
		return domain.ValidateProfileName(fl.Field().String()) == nil
	})
	v.RegisterValidation("keyname", func(fl validator.FieldLevel) bool {
		return domain.ValidateKeyName(fl.Field().String()) == nil
	})
	return v
}

// ==============================================================================
// Request Payloads
// ==============================================================================

type CreateProfileRequest struct {
	Name string `json:"name" validate:"required,profilename"`
}

// Value is a pointer so an absent field is told apart from an empty secret.
type AddKeyRequest struct {
	Name  string  `json:"name" validate:"required,keyname"`
	Value *string `json:"value" validate:"required"`
}

type UpdateKeyRequest struct {
	Value *string `json:"value" validate:"required"`
}

// decodeRequest reads a JSON body into dst and validates it. A missing
// required field answers 400 with missingMsg. It reports whether the
// handler may proceed.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, missingMsg string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}

	err := validate.Struct(dst)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				writeError(w, http.StatusBadRequest, missingMsg)
				return false
			}
		}
		switch verrs[0].Tag() {
		case "profilename":
			err = domain.ErrInvalidProfileName
		case "keyname":
			err = domain.ErrInvalidKeyName
		}
	}
	HandleError(w, r, err, "Invalid request")
	return false
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

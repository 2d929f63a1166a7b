// Package handler implements the JSON HTTP API over the sale services and
// the cart engine.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
	"github.com/tipatpati/golden-phone-management-sub007/internal/middleware"
)

// validate is the shared request DTO validator.
var validate = validator.New(validator.WithRequiredStructEnabled())

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// respondError maps a domain error to an HTTP status and writes the error
// envelope. Internal errors are logged with full detail and returned
// generic.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := codeToStatus(code)

	logger := middleware.GetLogger(r.Context())
	if status >= 500 {
		logger.Error("request failed", "error", err, "code", code)
	} else {
		logger.Info("request rejected", "error", err, "code", code)
	}

	respondJSON(w, status, errorResponse{
		Error: domain.ErrorMessage(err),
		Code:  code,
	})
}

func codeToStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody decodes and validates a JSON request body into dst.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, r, domain.Invalid("request.decode", "malformed JSON body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		fields := make(map[string]string)
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
		}
		respondJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Code:   domain.EINVALID,
			Fields: fields,
		})
		return false
	}
	return true
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/marmos91/iscsitgt/internal/controlplane/models"
)

// decodeJSONBody decodes a JSON request body into the provided pointer.
// Returns true if successful, false if decoding fails (error response is written automatically).
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// MapStoreError maps a control plane store error to an HTTP status code and message.
//
// Mapping:
//   - ErrTargetNotFound, ErrTPGNotFound, ErrPortalNotFound, ErrNodeACLNotFound -> 404
//   - ErrDuplicateTarget, ErrDuplicateTPG, ErrDuplicatePortal -> 409
//   - Default -> 500 "Internal server error"
func MapStoreError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrTargetNotFound):
		return http.StatusNotFound, "Target not found"
	case errors.Is(err, models.ErrTPGNotFound):
		return http.StatusNotFound, "Target portal group not found"
	case errors.Is(err, models.ErrPortalNotFound):
		return http.StatusNotFound, "Portal not found"
	case errors.Is(err, models.ErrNodeACLNotFound):
		return http.StatusNotFound, "Node ACL not found"

	case errors.Is(err, models.ErrDuplicateTarget):
		return http.StatusConflict, "Target already exists"
	case errors.Is(err, models.ErrDuplicateTPG):
		return http.StatusConflict, "Target portal group already exists"
	case errors.Is(err, models.ErrDuplicatePortal):
		return http.StatusConflict, "Portal already exists"

	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// HandleStoreError maps a store error to an HTTP response and writes it.
func HandleStoreError(w http.ResponseWriter, err error) {
	status, msg := MapStoreError(err)
	WriteProblem(w, status, http.StatusText(status), msg)
}

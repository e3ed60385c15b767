package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"parstock/internal/app"
	"parstock/internal/config"
	"parstock/internal/core"
)

type errorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	RequestID string            `json:"request_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, status, errorResponse{Error: message, Code: code})
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusCreated, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps an application error onto a status and error code.
// Anything unrecognised is logged and reported as a 500 without its message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *app.ValidationError
	switch {
	case errors.As(err, &verr):
		writeErrorResponse(w, r, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_ERROR",
			Fields: verr.Fields,
		})
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrUnauthenticated):
		writeError(w, r, err.Error(), "UNAUTHORIZED", http.StatusUnauthorized)
	case errors.Is(err, core.ErrPermissionDenied):
		writeError(w, r, err.Error(), "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrInvalidStateTransition):
		writeError(w, r, err.Error(), "INVALID_STATE", http.StatusConflict)
	case errors.Is(err, core.ErrInsufficientStock):
		writeError(w, r, err.Error(), "INSUFFICIENT_STOCK", http.StatusConflict)
	case errors.Is(err, core.ErrInvalidQuantity):
		writeError(w, r, err.Error(), "INVALID_QUANTITY", http.StatusBadRequest)
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
	default:
		config.LogError(h.logger, "web", "writeServiceError", r.Method+" "+r.URL.Path,
			map[string]any{"request_id": requestIDFromContext(r.Context())}, err)
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

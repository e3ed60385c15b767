package web

import (
	"net/http"

	"parstock/internal/app"

	"github.com/go-chi/chi/v5"
)

// schemaNames handles GET /api/schemas.
func (h *Handler) schemaNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, app.SchemaNames())
}

// schema handles GET /api/schemas/{name}, the JSON Schema of one request body.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	s, err := app.RequestSchema(chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, s)
}

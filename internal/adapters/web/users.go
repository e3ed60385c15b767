package web

import (
	"net/http"

	"parstock/internal/app"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context(), who(r))
	h.respond(w, r, users, err)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.svc.GetUser(r.Context(), who(r), id)
	h.respond(w, r, u, err)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req app.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), who(r), req)
	h.respondCreated(w, r, u, err)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), who(r), id, req)
	h.respond(w, r, u, err)
}

// deactivateUser handles DELETE /api/settings/users/{id}. Users are never
// removed because the ledger references them.
func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respondNoContent(w, r, h.svc.DeactivateUser(r.Context(), who(r), id))
}

func (h *Handler) setUserPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.PermissionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.SetUserPermissions(r.Context(), who(r), id, req)
	h.respond(w, r, u, err)
}

// availablePermissions handles GET /api/settings/users/permissions.
func (h *Handler) availablePermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.svc.AvailablePermissions(r.Context(), who(r))
	h.respond(w, r, perms, err)
}

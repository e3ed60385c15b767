package web

import (
	"net/http"
	"strings"

	"parstock/internal/app"
	"parstock/internal/core"
)

// listCountSessions handles GET /api/counts/sessions?status=&location_id=.
func (h *Handler) listCountSessions(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	sessions, err := h.svc.ListCountSessions(r.Context(), who(r), core.CountSessionFilter{
		Status:     core.CountStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		LocationID: locationID,
	})
	h.respond(w, r, sessions, err)
}

func (h *Handler) startCount(w http.ResponseWriter, r *http.Request) {
	var req app.StartCountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cs, err := h.svc.StartCount(r.Context(), who(r), req)
	h.respondCreated(w, r, cs, err)
}

func (h *Handler) getCountSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cs, err := h.svc.GetCountSession(r.Context(), who(r), id)
	h.respond(w, r, cs, err)
}

// recordCountLine handles POST /api/counts/sessions/{id}/lines. Posting the
// same item again replaces its count.
func (h *Handler) recordCountLine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CountLineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	line, err := h.svc.RecordCountLine(r.Context(), who(r), id, req)
	h.respondCreated(w, r, line, err)
}

func (h *Handler) completeCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cs, err := h.svc.CompleteCount(r.Context(), who(r), id)
	h.respond(w, r, cs, err)
}

func (h *Handler) approveCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cs, err := h.svc.ApproveCount(r.Context(), who(r), id)
	h.respond(w, r, cs, err)
}

func (h *Handler) cancelCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cs, err := h.svc.CancelCount(r.Context(), who(r), id)
	h.respond(w, r, cs, err)
}

func (h *Handler) spotCheck(w http.ResponseWriter, r *http.Request) {
	var req app.SpotCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SpotCheck(r.Context(), who(r), req)
	h.respond(w, r, res, err)
}

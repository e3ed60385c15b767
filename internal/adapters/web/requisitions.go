package web

import (
	"net/http"
	"strings"

	"parstock/internal/app"
	"parstock/internal/core"
)

// listRequisitions handles GET /api/requisitions?status=&location_id=&mine=.
func (h *Handler) listRequisitions(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	filter := core.RequisitionFilter{
		Status:     core.RequisitionStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		LocationID: locationID,
	}
	if queryBool(r, "mine") {
		filter.RequestedBy = who(r).UserID
	}
	reqs, err := h.svc.ListRequisitions(r.Context(), who(r), filter)
	h.respond(w, r, reqs, err)
}

func (h *Handler) createRequisition(w http.ResponseWriter, r *http.Request) {
	var req app.CreateRequisitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rq, err := h.svc.CreateRequisition(r.Context(), who(r), req)
	h.respondCreated(w, r, rq, err)
}

func (h *Handler) getRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rq, err := h.svc.GetRequisition(r.Context(), who(r), id)
	h.respond(w, r, rq, err)
}

func (h *Handler) requisitionAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	av, err := h.svc.RequisitionAvailability(r.Context(), who(r), id)
	h.respond(w, r, av, err)
}

func (h *Handler) approveRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rq, err := h.svc.ApproveRequisition(r.Context(), who(r), id)
	h.respond(w, r, rq, err)
}

// denyRequisition handles POST /api/requisitions/{id}/deny; denial_reason is optional.
func (h *Handler) denyRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.DenyRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	rq, err := h.svc.DenyRequisition(r.Context(), who(r), id, req)
	h.respond(w, r, rq, err)
}

// pickRequisition handles POST /api/requisitions/{id}/pick. An empty body picks
// every line in full.
func (h *Handler) pickRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.PickRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	rq, err := h.svc.PickRequisition(r.Context(), who(r), id, req)
	h.respond(w, r, rq, err)
}

func (h *Handler) completeRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rq, err := h.svc.CompleteRequisition(r.Context(), who(r), id)
	h.respond(w, r, rq, err)
}

func (h *Handler) cancelRequisition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rq, err := h.svc.CancelRequisition(r.Context(), who(r), id)
	h.respond(w, r, rq, err)
}

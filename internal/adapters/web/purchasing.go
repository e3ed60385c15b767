package web

import (
	"net/http"
	"strings"

	"parstock/internal/app"
	"parstock/internal/core"
)

// listPurchaseRequests handles GET /api/purchase-requests?status=&vendor_id=.
func (h *Handler) listPurchaseRequests(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := queryInt(w, r, "vendor_id")
	if !ok {
		return
	}
	filter := core.PurchaseFilter{
		Status:   core.PurchaseStatus(strings.ToUpper(r.URL.Query().Get("status"))),
		VendorID: vendorID,
	}
	prs, err := h.svc.ListPurchaseRequests(r.Context(), who(r), filter)
	h.respond(w, r, prs, err)
}

func (h *Handler) createPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	var req app.CreatePurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.CreatePurchaseRequest(r.Context(), who(r), req)
	h.respondCreated(w, r, p, err)
}

func (h *Handler) purchaseFromSuggestions(w http.ResponseWriter, r *http.Request) {
	var req app.PurchaseFromSuggestionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.svc.PurchaseFromSuggestions(r.Context(), who(r), req)
	h.respondCreated(w, r, p, err)
}

func (h *Handler) getPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetPurchaseRequest(r.Context(), who(r), id)
	h.respond(w, r, p, err)
}

func (h *Handler) submitPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.SubmitPurchaseRequest(r.Context(), who(r), id)
	h.respond(w, r, p, err)
}

func (h *Handler) approvePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.ApprovePurchaseRequest(r.Context(), who(r), id)
	h.respond(w, r, p, err)
}

func (h *Handler) denyPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.DenyRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	p, err := h.svc.DenyPurchaseRequest(r.Context(), who(r), id, req)
	h.respond(w, r, p, err)
}

// orderPurchaseRequest handles POST /api/purchase-requests/{id}/order; po_number is optional.
func (h *Handler) orderPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.PurchaseOrderRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	p, err := h.svc.OrderPurchaseRequest(r.Context(), who(r), id, req)
	h.respond(w, r, p, err)
}

// receivePurchaseRequest handles POST /api/purchase-requests/{id}/receive. An
// empty body receives every line in full.
func (h *Handler) receivePurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.PurchaseReceiveRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	p, err := h.svc.ReceivePurchaseRequest(r.Context(), who(r), id, req)
	h.respond(w, r, p, err)
}

func (h *Handler) cancelPurchaseRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.CancelPurchaseRequest(r.Context(), who(r), id)
	h.respond(w, r, p, err)
}

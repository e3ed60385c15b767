package web

import (
	"net/http"

	"parstock/internal/app"
	"parstock/internal/core"
)

// listStock handles GET /api/stock?item_id=&location_id=&search=&below_par=.
func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	locationID, ok := queryInt(w, r, "location_id")
	if !ok {
		return
	}
	levels, err := h.svc.ListStock(r.Context(), who(r), core.StockFilter{
		ItemID:     itemID,
		LocationID: locationID,
		Search:     r.URL.Query().Get("search"),
		BelowPar:   queryBool(r, "below_par"),
	})
	h.respond(w, r, levels, err)
}

// stockByItem handles GET /api/stock/by_item?item_id=. Without item_id every
// item is returned.
func (h *Handler) stockByItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	res, err := h.svc.StockByItem(r.Context(), who(r), itemID)
	h.respond(w, r, res, err)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req app.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Transfer(r.Context(), who(r), req)
	h.respondCreated(w, r, t, err)
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request) {
	var req app.IssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Issue(r.Context(), who(r), req)
	h.respondCreated(w, r, t, err)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req app.AdjustRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Adjust(r.Context(), who(r), req)
	h.respondCreated(w, r, t, err)
}

// reconcile handles GET /api/stock/reconcile. An empty list means the stored
// levels agree with the ledger.
func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	diffs, err := h.svc.Reconcile(r.Context(), who(r))
	if diffs == nil {
		diffs = []core.ReconcileDiff{}
	}
	h.respond(w, r, diffs, err)
}

// updateParLevels handles POST /api/settings/par-levels. Row errors are
// reported in the body; the request itself still succeeds.
func (h *Handler) updateParLevels(w http.ResponseWriter, r *http.Request) {
	var req app.ParLevelsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.UpdateParLevels(r.Context(), who(r), req)
	h.respond(w, r, res, err)
}

// ── Receiving ────────────────────────────────────────────────────────────────

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var req app.ReceiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.Receive(r.Context(), who(r), req)
	h.respondCreated(w, r, t, err)
}

// receivingHistory handles GET /api/receiving/history?limit=.
func (h *Handler) receivingHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	txs, err := h.svc.ReceivingHistory(r.Context(), who(r), limit)
	h.respond(w, r, txs, err)
}

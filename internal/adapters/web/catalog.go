package web

import (
	"net/http"

	"parstock/internal/app"
	"parstock/internal/core"

	"github.com/go-chi/chi/v5"
)

// ── Items ────────────────────────────────────────────────────────────────────

// listItems handles GET /api/items?search=&category=&include_inactive=.
func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	category, ok := queryInt(w, r, "category")
	if !ok {
		return
	}
	items, err := h.svc.ListItems(r.Context(), who(r), core.ItemFilter{
		Search:          r.URL.Query().Get("search"),
		CategoryID:      category,
		IncludeInactive: queryBool(r, "include_inactive"),
	})
	h.respond(w, r, items, err)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetItem(r.Context(), who(r), id)
	h.respond(w, r, item, err)
}

// lookupItem handles GET /api/items/lookup/{code}, the QR scan target.
func (h *Handler) lookupItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.LookupItem(r.Context(), who(r), chi.URLParam(r, "code"))
	h.respond(w, r, item, err)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req app.ItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.CreateItem(r.Context(), who(r), req)
	h.respondCreated(w, r, item, err)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.ItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.UpdateItem(r.Context(), who(r), id, req)
	h.respond(w, r, item, err)
}

// itemUsage handles GET /api/items/{id}/usage?days=.
func (h *Handler) itemUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	usage, err := h.svc.ItemUsage(r.Context(), who(r), id, days)
	h.respond(w, r, usage, err)
}

func (h *Handler) itemStockByLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ItemStockByLocation(r.Context(), who(r), id)
	h.respond(w, r, res, err)
}

// itemTransactions handles GET /api/items/{id}/transactions?limit=.
func (h *Handler) itemTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	txs, err := h.svc.ItemTransactions(r.Context(), who(r), id, limit)
	h.respond(w, r, txs, err)
}

// ── Locations ────────────────────────────────────────────────────────────────

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListLocations(r.Context(), who(r), queryBool(r, "include_inactive"))
	h.respond(w, r, locs, err)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req app.LocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loc, err := h.svc.CreateLocation(r.Context(), who(r), req)
	h.respondCreated(w, r, loc, err)
}

func (h *Handler) updateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.LocationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	loc, err := h.svc.UpdateLocation(r.Context(), who(r), id, req)
	h.respond(w, r, loc, err)
}

func (h *Handler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respondNoContent(w, r, h.svc.DeleteLocation(r.Context(), who(r), id))
}

// ── Categories ───────────────────────────────────────────────────────────────

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context(), who(r), queryBool(r, "include_inactive"))
	h.respond(w, r, cats, err)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := h.svc.CreateCategory(r.Context(), who(r), req)
	h.respondCreated(w, r, cat, err)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cat, err := h.svc.UpdateCategory(r.Context(), who(r), id, req)
	h.respond(w, r, cat, err)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respondNoContent(w, r, h.svc.DeleteCategory(r.Context(), who(r), id))
}

// ── Vendors ──────────────────────────────────────────────────────────────────

func (h *Handler) listVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.svc.ListVendors(r.Context(), who(r), queryBool(r, "include_inactive"))
	h.respond(w, r, vendors, err)
}

func (h *Handler) createVendor(w http.ResponseWriter, r *http.Request) {
	var req app.VendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.CreateVendor(r.Context(), who(r), req)
	h.respondCreated(w, r, v, err)
}

func (h *Handler) updateVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req app.VendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.UpdateVendor(r.Context(), who(r), id, req)
	h.respond(w, r, v, err)
}

func (h *Handler) deleteVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.respondNoContent(w, r, h.svc.DeleteVendor(r.Context(), who(r), id))
}

package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Alerts(r.Context(), who(r))
	h.respond(w, r, res, err)
}

// suggestedOrders handles GET /api/reports/suggested-orders?vendor_id=.
func (h *Handler) suggestedOrders(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := queryInt(w, r, "vendor_id")
	if !ok {
		return
	}
	res, err := h.svc.SuggestedOrders(r.Context(), who(r), vendorID)
	h.respond(w, r, res, err)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// exportSuggestedOrders handles GET /api/reports/suggested-orders/export?vendor_id=.
func (h *Handler) exportSuggestedOrders(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := queryInt(w, r, "vendor_id")
	if !ok {
		return
	}
	data, err := h.svc.ExportSuggestedOrders(r.Context(), who(r), vendorID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	name := fmt.Sprintf("suggested-orders-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// usageTrends handles GET /api/reports/usage-trends?item_id=&days=.
func (h *Handler) usageTrends(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryInt(w, r, "item_id")
	if !ok {
		return
	}
	if itemID == 0 {
		writeError(w, r, "item_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	res, err := h.svc.UsageTrends(r.Context(), who(r), itemID, days)
	h.respond(w, r, res, err)
}

// generalUsage handles GET /api/reports/general-usage?period=month|quarter|year.
func (h *Handler) generalUsage(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "month"
	}
	res, err := h.svc.GeneralUsage(r.Context(), who(r), period)
	h.respond(w, r, res, err)
}

// lowParTrends handles GET /api/reports/low-par-trends?days=.
func (h *Handler) lowParTrends(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	res, err := h.svc.LowParTrends(r.Context(), who(r), days)
	h.respond(w, r, res, err)
}

func (h *Handler) environmentalImpact(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.EnvironmentalImpact(r.Context(), who(r))
	h.respond(w, r, res, err)
}

// dashboard handles GET /api/dashboard/stats?days=.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	res, err := h.svc.Dashboard(r.Context(), who(r), days)
	h.respond(w, r, res, err)
}

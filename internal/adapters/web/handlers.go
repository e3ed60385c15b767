package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"parstock/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Options configures the HTTP adapter.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	CookieSecure   bool
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	opts   Options
	logger logrus.FieldLogger
	router chi.Router
}

// NewHandler creates and wires the chi router with all routes. Every route is
// served under /api and accepts an optional trailing slash.
func NewHandler(svc app.ApplicationService, opts Options, logger logrus.FieldLogger) http.Handler {
	h := &Handler{svc: svc, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	r.Route("/api", func(r chi.Router) {
		// ── Public ────────────────────────────────────────────────────────────
		r.Get("/health", h.health)
		r.Get("/auth/csrf", h.csrf)
		r.Post("/auth/login", h.login)
		r.Get("/schemas", h.schemaNames)
		r.Get("/schemas/{name}", h.schema)

		r.With(CSRF).Post("/auth/logout", h.logout)

		// ── Protected ─────────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(CSRF)
			r.Use(h.RequireAuth)

			r.Get("/auth/user", h.me)

			// Items
			r.Get("/items", h.listItems)
			r.Post("/items", h.createItem)
			r.Get("/items/lookup/{code}", h.lookupItem)
			r.Get("/items/{id}", h.getItem)
			r.Put("/items/{id}", h.updateItem)
			r.Patch("/items/{id}", h.updateItem)
			r.Get("/items/{id}/usage", h.itemUsage)
			r.Get("/items/{id}/stock_by_location", h.itemStockByLocation)
			r.Get("/items/{id}/transactions", h.itemTransactions)

			// Stock
			r.Get("/stock", h.listStock)
			r.Get("/stock/by_item", h.stockByItem)
			r.Post("/stock/transfer", h.transfer)
			r.Post("/stock/issue", h.issue)
			r.Post("/stock/adjust", h.adjust)
			r.Get("/stock/reconcile", h.reconcile)

			// Receiving
			r.Post("/receiving/receive", h.receive)
			r.Get("/receiving/history", h.receivingHistory)

			// Counts
			r.Get("/counts/sessions", h.listCountSessions)
			r.Post("/counts/sessions", h.startCount)
			r.Get("/counts/sessions/{id}", h.getCountSession)
			r.Post("/counts/sessions/{id}/lines", h.recordCountLine)
			r.Post("/counts/sessions/{id}/complete", h.completeCount)
			r.Post("/counts/sessions/{id}/approve", h.approveCount)
			r.Post("/counts/sessions/{id}/cancel", h.cancelCount)
			r.Post("/counts/spot-check", h.spotCheck)

			// Requisitions
			r.Get("/requisitions", h.listRequisitions)
			r.Post("/requisitions", h.createRequisition)
			r.Get("/requisitions/{id}", h.getRequisition)
			r.Get("/requisitions/{id}/availability", h.requisitionAvailability)
			r.Post("/requisitions/{id}/approve", h.approveRequisition)
			r.Post("/requisitions/{id}/deny", h.denyRequisition)
			r.Post("/requisitions/{id}/pick", h.pickRequisition)
			r.Post("/requisitions/{id}/complete", h.completeRequisition)
			r.Post("/requisitions/{id}/cancel", h.cancelRequisition)

			// Purchasing
			r.Get("/purchase-requests", h.listPurchaseRequests)
			r.Post("/purchase-requests", h.createPurchaseRequest)
			r.Post("/purchase-requests/from-suggestions", h.purchaseFromSuggestions)
			r.Get("/purchase-requests/{id}", h.getPurchaseRequest)
			r.Post("/purchase-requests/{id}/submit", h.submitPurchaseRequest)
			r.Post("/purchase-requests/{id}/approve", h.approvePurchaseRequest)
			r.Post("/purchase-requests/{id}/deny", h.denyPurchaseRequest)
			r.Post("/purchase-requests/{id}/order", h.orderPurchaseRequest)
			r.Post("/purchase-requests/{id}/receive", h.receivePurchaseRequest)
			r.Post("/purchase-requests/{id}/cancel", h.cancelPurchaseRequest)

			// Reports
			r.Get("/reports/alerts", h.alerts)
			r.Get("/reports/suggested-orders", h.suggestedOrders)
			r.Get("/reports/suggested-orders/export", h.exportSuggestedOrders)
			r.Get("/reports/usage-trends", h.usageTrends)
			r.Get("/reports/general-usage", h.generalUsage)
			r.Get("/reports/low-par-trends", h.lowParTrends)
			r.Get("/reports/environmental-impact", h.environmentalImpact)
			r.Get("/dashboard/stats", h.dashboard)

			// Settings
			r.Post("/settings/par-levels", h.updateParLevels)
			r.Get("/settings/locations", h.listLocations)
			r.Post("/settings/locations", h.createLocation)
			r.Put("/settings/locations/{id}", h.updateLocation)
			r.Patch("/settings/locations/{id}", h.updateLocation)
			r.Delete("/settings/locations/{id}", h.deleteLocation)
			r.Get("/settings/categories", h.listCategories)
			r.Post("/settings/categories", h.createCategory)
			r.Put("/settings/categories/{id}", h.updateCategory)
			r.Patch("/settings/categories/{id}", h.updateCategory)
			r.Delete("/settings/categories/{id}", h.deleteCategory)
			r.Get("/settings/vendors", h.listVendors)
			r.Post("/settings/vendors", h.createVendor)
			r.Put("/settings/vendors/{id}", h.updateVendor)
			r.Patch("/settings/vendors/{id}", h.updateVendor)
			r.Delete("/settings/vendors/{id}", h.deleteVendor)
			r.Get("/settings/users", h.listUsers)
			r.Post("/settings/users", h.createUser)
			r.Get("/settings/users/permissions", h.availablePermissions)
			r.Get("/settings/users/{id}", h.getUser)
			r.Put("/settings/users/{id}", h.updateUser)
			r.Patch("/settings/users/{id}", h.updateUser)
			r.Delete("/settings/users/{id}", h.deactivateUser)
			r.Post("/settings/users/{id}/permissions", h.setUserPermissions)
		})
	})

	h.router = r
	return r
}

// health returns process and dependency status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Health(r.Context())
	status := http.StatusOK
	if res.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, res)
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, writing a 400 when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, r, fmt.Sprintf("invalid id %q", raw), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, r, fmt.Sprintf("invalid %s %q", name, raw), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// queryBool treats "true", "1" and "yes" as true.
func queryBool(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// respond writes v as JSON, or the mapped error.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, v)
}

// respondCreated writes v with status 201, or the mapped error.
func (h *Handler) respondCreated(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeCreated(w, v)
}

// respondNoContent writes 204, or the mapped error.
func (h *Handler) respondNoContent(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

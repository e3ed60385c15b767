package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parstock/internal/app"
	"parstock/internal/core"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// fakeApp embeds the interface; calling a method it does not override panics,
// which the Recoverer turns into a 500.
type fakeApp struct {
	app.ApplicationService
	issueErr error
	issued   *app.IssueRequest
	who      core.Principal
	received *app.PurchaseReceiveRequest
	days     int
}

func (f *fakeApp) Health(context.Context) *app.HealthResult {
	return &app.HealthResult{Status: "ok", Database: "ok", Cache: "disabled"}
}

func (f *fakeApp) Login(_ context.Context, req app.LoginRequest) (*app.UserSession, error) {
	if req.Username != "sup" || req.Password != "correct horse" {
		return nil, app.ErrInvalidCredentials
	}
	return &app.UserSession{UserID: 2, Username: "sup", Role: core.RoleSupervisor}, nil
}

func (f *fakeApp) ResolvePrincipal(_ context.Context, userID int) (core.Principal, error) {
	if userID != 2 {
		return core.Principal{}, app.ErrUnauthenticated
	}
	return core.Principal{UserID: 2, Username: "sup", Role: core.RoleSupervisor}, nil
}

func (f *fakeApp) CurrentUser(_ context.Context, who core.Principal) (*app.UserResult, error) {
	return &app.UserResult{User: core.User{ID: who.UserID, Username: who.Username, Role: who.Role}}, nil
}

func (f *fakeApp) Issue(_ context.Context, who core.Principal, req app.IssueRequest) (*core.InventoryTransaction, error) {
	f.who = who
	f.issued = &req
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	return &core.InventoryTransaction{ID: 1, Type: core.TxIssue, ItemID: req.ItemID, Qty: req.Qty}, nil
}

func (f *fakeApp) GetRequisition(_ context.Context, _ core.Principal, id int) (*core.Requisition, error) {
	return &core.Requisition{ID: id, Number: "REQ-0001", Status: core.RequisitionPending}, nil
}

func (f *fakeApp) ReceivePurchaseRequest(_ context.Context, who core.Principal, id int, req app.PurchaseReceiveRequest) (*core.PurchaseRequest, error) {
	f.who = who
	f.received = &req
	return &core.PurchaseRequest{ID: id, Number: "PR-2024-00001", Status: core.PurchaseReceived}, nil
}

func (f *fakeApp) Dashboard(_ context.Context, _ core.Principal, days int) (*core.DashboardReport, error) {
	f.days = days
	return &core.DashboardReport{TopItems: []core.DashboardItem{}, Totals: core.DashboardTotals{PeriodDays: days}}, nil
}

func (f *fakeApp) ExportSuggestedOrders(context.Context, core.Principal, int) ([]byte, error) {
	return []byte("PK\x03\x04"), nil
}

type client struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
	csrf    string
}

func newClient(t *testing.T, fake *fakeApp) *client {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return &client{t: t, handler: NewHandler(fake, Options{JWTSecret: testSecret}, logger)}
}

// signIn attaches a valid session and CSRF pair without going through login.
func (c *client) signIn(userID int) *client {
	h := &Handler{opts: Options{JWTSecret: testSecret}}
	token, err := h.signToken(userID, time.Now())
	require.NoError(c.t, err)
	c.csrf = "csrf-token-1"
	c.cookies = []*http.Cookie{
		{Name: authCookie, Value: token},
		{Name: csrfCookie, Value: c.csrf},
	}
	return c
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	if c.csrf != "" {
		req.Header.Set(csrfHeader, c.csrf)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthAcceptsTrailingSlash(t *testing.T) {
	c := newClient(t, &fakeApp{})
	for _, path := range []string{"/api/health", "/api/health/"} {
		rec := c.do(http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	c := newClient(t, &fakeApp{})
	rec := c.do(http.MethodGet, "/api/auth/user/", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "UNAUTHORIZED", resp.Code)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), resp.RequestID)
}

func TestSessionForInactiveUserIsRejected(t *testing.T) {
	c := newClient(t, &fakeApp{}).signIn(3)
	rec := c.do(http.MethodGet, "/api/auth/user/", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	c := newClient(t, &fakeApp{})

	rec := c.do(http.MethodPost, "/api/auth/login/", `{"username":"sup","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/api/auth/login/", `{"username":"sup","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var session *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == authCookie {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	c.cookies = []*http.Cookie{session}
	rec = c.do(http.MethodGet, "/api/auth/user/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"sup"`)
}

func TestCSRFEndpointIssuesToken(t *testing.T) {
	c := newClient(t, &fakeApp{})
	rec := c.do(http.MethodGet, "/api/auth/csrf/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body app.CSRFResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookie, cookies[0].Name)
	assert.Equal(t, body.CSRFToken, cookies[0].Value)
	assert.False(t, cookies[0].HttpOnly)
}

func TestMutationRequiresCSRFToken(t *testing.T) {
	fake := &fakeApp{}
	c := newClient(t, fake).signIn(2)
	c.csrf = "" // cookie still present, header missing

	rec := c.do(http.MethodPost, "/api/stock/issue/", `{"item_id":1,"from_location_id":1,"qty":"2"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CSRF_FAILED", decodeError(t, rec).Code)
	assert.Nil(t, fake.issued)
}

func TestIssuePassesPrincipalAndBody(t *testing.T) {
	fake := &fakeApp{}
	c := newClient(t, fake).signIn(2)

	rec := c.do(http.MethodPost, "/api/stock/issue/", `{"item_id":1,"from_location_id":4,"qty":2.5,"work_order_id":"WO-7"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, fake.issued)
	assert.Equal(t, 2, fake.who.UserID)
	assert.Equal(t, 4, fake.issued.FromLocationID)
	assert.Equal(t, "WO-7", fake.issued.WorkOrderID)
	assert.True(t, decimal.RequireFromString("2.5").Equal(fake.issued.Qty))
	assert.Contains(t, rec.Body.String(), `"qty":"2.5"`)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient stock", &core.InsufficientStockError{ItemID: 1, LocationID: 1, Requested: "5", Available: "2"}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"state transition", &core.TransitionError{Entity: "requisition", ID: 1, Operation: "pick", From: "PENDING", To: "PICKED"}, http.StatusConflict, "INVALID_STATE"},
		{"not found", &core.NotFoundError{Entity: "item", Key: 9}, http.StatusNotFound, "NOT_FOUND"},
		{"permission", fmt.Errorf("%w: sup cannot stock.create", core.ErrPermissionDenied), http.StatusForbidden, "FORBIDDEN"},
		{"quantity", fmt.Errorf("%w: qty must be positive", core.ErrInvalidQuantity), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"validation", &app.ValidationError{Fields: map[string]string{"qty": "must be greater than 0"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, &fakeApp{issueErr: tt.err}).signIn(2)
			rec := c.do(http.MethodPost, "/api/stock/issue/", `{"item_id":1,"from_location_id":1,"qty":"1"}`)
			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			if tt.code == "VALIDATION_ERROR" {
				assert.Equal(t, "must be greater than 0", resp.Fields["qty"])
			}
			if tt.code == "INTERNAL_ERROR" {
				assert.NotContains(t, resp.Error, "connection reset")
			}
		})
	}
}

func TestMalformedRequests(t *testing.T) {
	c := newClient(t, &fakeApp{}).signIn(2)

	rec := c.do(http.MethodGet, "/api/requisitions/abc/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/api/stock/issue/", `{"item_id":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"notes":"` + strings.Repeat("x", 2<<20) + `"}`
	rec = c.do(http.MethodPost, "/api/stock/issue/", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = c.do(http.MethodGet, "/api/requisitions/12/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"number":"REQ-0001"`)
}

func TestExportSuggestedOrders(t *testing.T) {
	c := newClient(t, &fakeApp{}).signIn(2)
	rec := c.do(http.MethodGet, "/api/reports/suggested-orders/export/?vendor_id=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "suggested-orders-")
	assert.Equal(t, "PK\x03\x04", rec.Body.String())
}

func TestRequestSchemaEndpoint(t *testing.T) {
	c := newClient(t, &fakeApp{})

	rec := c.do(http.MethodGet, "/api/schemas/transfer/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"to_location_id"`)

	rec = c.do(http.MethodGet, "/api/schemas/nope/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReceivePurchaseRequestAcceptsEmptyBody(t *testing.T) {
	fake := &fakeApp{}
	c := newClient(t, fake).signIn(2)

	rec := c.do(http.MethodPost, "/api/purchase-requests/4/receive/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.received)
	assert.Empty(t, fake.received.Lines)
	assert.Contains(t, rec.Body.String(), `"status":"RECEIVED"`)

	rec = c.do(http.MethodPost, "/api/purchase-requests/4/receive/",
		`{"lines":[{"item_id":1,"location_id":2,"qty_received":"3"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.received.Lines, 1)
	assert.Equal(t, 2, fake.received.Lines[0].LocationID)
	assert.True(t, decimal.NewFromInt(3).Equal(fake.received.Lines[0].QtyReceived))
}

func TestDashboardStats(t *testing.T) {
	fake := &fakeApp{}
	c := newClient(t, fake).signIn(2)

	rec := c.do(http.MethodGet, "/api/dashboard/stats/?days=7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, fake.days)
	assert.Contains(t, rec.Body.String(), `"period_days":7`)

	rec = c.do(http.MethodGet, "/api/dashboard/stats/?days=week", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

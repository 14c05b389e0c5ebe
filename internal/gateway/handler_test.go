package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attstore "shopcore/internal/attendance/store"
	"shopcore/internal/audit"
	billingstore "shopcore/internal/billing/store"
	billingsvc "shopcore/internal/billing/service"
	"shopcore/internal/captoken"
	dashcache "shopcore/internal/dashboard/cache"
	dashboardsvc "shopcore/internal/dashboard/service"
	displaystore "shopcore/internal/display/store"
	displaysvc "shopcore/internal/display/service"
	"shopcore/internal/ratelimit"
	ordermodels "shopcore/internal/serviceorder/models"
	orderstore "shopcore/internal/serviceorder/store"
	"shopcore/internal/tenant/scope"
	"shopcore/pkg/requestcontext"
)

type recordingAuditor struct {
	records []audit.Record
}

func (r *recordingAuditor) Emit(_ context.Context, record audit.Record) error {
	r.records = append(r.records, record)
	return nil
}

type fixture struct {
	router   *chi.Mux
	billing  *billingsvc.Service
	display  *displaysvc.Service
	orders   *orderstore.InMemoryStore
	auditor  *recordingAuditor
	tenantID uuid.UUID
	ctx      context.Context
	now      time.Time
}

func newFixture(t *testing.T, portalLimit, displayLimit int64) *fixture {
	t.Helper()
	f := &fixture{
		auditor:  &recordingAuditor{},
		tenantID: uuid.New(),
		now:      time.Date(2026, 8, 10, 9, 0, 1, 0, time.UTC),
	}
	f.ctx = scope.WithScope(context.Background(), scope.ForTenant(f.tenantID))
	clock := func() time.Time { return f.now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f.orders = orderstore.NewInMemoryStore()
	bst := billingstore.NewInMemoryStore()
	f.billing = billingsvc.New(bst, f.orders, captoken.New(bst, captoken.WithClock(clock)), f.auditor,
		billingsvc.WithClock(clock), billingsvc.WithLogger(logger))

	dst := displaystore.NewInMemoryStore()
	f.display = displaysvc.New(captoken.New(dst, captoken.WithClock(clock)), dst, f.auditor,
		displaysvc.WithClock(clock))

	dashboard := dashboardsvc.New(attstore.NewInMemoryStore(), f.orders,
		dashcache.NewMemory().WithClock(clock), dashboardsvc.WithClock(clock))

	portal := ratelimit.New(ratelimit.NewMemoryCounter().WithClock(clock), "portal", portalLimit, time.Minute, ratelimit.WithClock(clock))
	display := ratelimit.New(ratelimit.NewMemoryCounter().WithClock(clock), "display", displayLimit, time.Minute, ratelimit.WithClock(clock))

	h := New(f.billing, f.display, dashboard, portal, display, logger)
	f.router = chi.NewRouter()
	f.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientMetadata(r.Context(), "203.0.113.9", "portal-test-agent")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(f.router)
	return f
}

// issuePortalToken sets up an order in AWAITING_APPROVAL with a live token.
func (f *fixture) issuePortalToken(t *testing.T) (string, uuid.UUID) {
	t.Helper()
	order, err := ordermodels.NewServiceOrder("Acme Trucking", "truck-7", f.now)
	require.NoError(t, err)
	sc := scope.ForTenant(f.tenantID)
	require.NoError(t, f.orders.Create(f.ctx, sc, order))
	_, err = f.orders.UpdateStatus(f.ctx, sc, order.ID, ordermodels.StatusDraft, ordermodels.StatusAwaitingApproval, f.now)
	require.NoError(t, err)

	est, err := f.billing.CreateEstimate(f.ctx, order.ID, 450)
	require.NoError(t, err)
	raw, _, err := f.billing.IssuePortalToken(f.ctx, est.ID)
	require.NoError(t, err)
	return raw, order.ID
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestPortalViewWithValidToken(t *testing.T) {
	f := newFixture(t, 20, 60)
	raw, _ := f.issuePortalToken(t)

	rec := f.do(t, http.MethodGet, "/portal/estimate?token="+raw, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acme Trucking")
	assert.NotContains(t, rec.Body.String(), "internal_notes")
}

func TestPortalTokenFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, 20, 60)
	raw, _ := f.issuePortalToken(t)

	missing := f.do(t, http.MethodGet, "/portal/estimate", nil)
	garbage := f.do(t, http.MethodGet, "/portal/estimate?token=not-a-token", nil)

	f.now = f.now.Add(80 * time.Hour)
	expired := f.do(t, http.MethodGet, "/portal/estimate?token="+raw, nil)

	for name, rec := range map[string]*httptest.ResponseRecorder{
		"missing": missing, "garbage": garbage, "expired": expired,
	} {
		assert.Equal(t, http.StatusForbidden, rec.Code, name)
		assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String(), name)
	}
}

func TestPortalRateLimitMatchesTokenFailureBody(t *testing.T) {
	f := newFixture(t, 2, 60)
	raw, _ := f.issuePortalToken(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/portal/estimate?token="+raw, nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/portal/estimate?token="+raw, nil).Code)

	// Third hit in the window is rejected even though the token is valid.
	rec := f.do(t, http.MethodGet, "/portal/estimate?token="+raw, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

func TestPortalApproveCascadesAndAuditsOnce(t *testing.T) {
	f := newFixture(t, 20, 60)
	raw, orderID := f.issuePortalToken(t)
	f.auditor.records = nil

	rec := f.do(t, http.MethodPost, "/portal/estimate?token="+raw,
		map[string]string{"action": "approve", "name": "Pat Customer"})
	require.Equal(t, http.StatusOK, rec.Code)

	order, err := f.orders.FindByID(f.ctx, scope.ForTenant(f.tenantID), orderID)
	require.NoError(t, err)
	assert.Equal(t, ordermodels.StatusApproved, order.Status)

	require.Len(t, f.auditor.records, 1)
	rec0 := f.auditor.records[0]
	assert.Equal(t, audit.ActionEstimateDecision, rec0.Action)
	assert.Equal(t, audit.AnonymousActor, rec0.Actor)
	assert.Equal(t, "203.0.113.9", rec0.IPAddress)
}

func TestPortalRepeatDeclineDoesNotError(t *testing.T) {
	f := newFixture(t, 20, 60)
	raw, _ := f.issuePortalToken(t)

	body := map[string]string{"action": "decline", "name": "Pat"}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/portal/estimate?token="+raw, body).Code)
	rec := f.do(t, http.MethodPost, "/portal/estimate?token="+raw, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "declined")
}

func TestPortalUnknownDecisionVerb(t *testing.T) {
	f := newFixture(t, 20, 60)
	raw, _ := f.issuePortalToken(t)

	rec := f.do(t, http.MethodPost, "/portal/estimate?token="+raw, map[string]string{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDisplayDashboard(t *testing.T) {
	f := newFixture(t, 20, 60)

	raw, _, err := f.display.Rotate(f.ctx)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/display/dashboard?token="+raw+"&range=week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"range":"week"`)

	// Rotation cuts off the old URL.
	_, _, err = f.display.Rotate(f.ctx)
	require.NoError(t, err)
	rec = f.do(t, http.MethodGet, "/display/dashboard?token="+raw, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())
}

func TestDisplayRateLimitIsSeparateFromPortal(t *testing.T) {
	f := newFixture(t, 1, 3)
	raw, _, err := f.display.Rotate(f.ctx)
	require.NoError(t, err)

	// Exhaust the portal window; the display window is untouched.
	f.do(t, http.MethodGet, "/portal/estimate?token=x", nil)
	f.do(t, http.MethodGet, "/portal/estimate?token=x", nil)

	rec := f.do(t, http.MethodGet, "/display/dashboard?token="+raw, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopcore/internal/audit"
	"shopcore/internal/serviceorder/models"
	"shopcore/internal/serviceorder/service"
	"shopcore/internal/serviceorder/store"
	"shopcore/internal/tenant/scope"
)

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, audit.Record) error { return nil }

func newTestRouter(tenantID uuid.UUID) *chi.Mux {
	svc := service.New(store.NewInMemoryStore(), noopAuditor{})
	h := New(svc, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := scope.WithScope(req.Context(), scope.ForTenant(tenantID))
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGetOrder(t *testing.T) {
	r := newTestRouter(uuid.New())

	rec := doJSON(t, r, http.MethodPost, "/service-orders", map[string]any{
		"customer_name": "Acme Trucking",
		"unit_label":    "truck-7",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.ServiceOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.StatusDraft, created.Status)

	rec = doJSON(t, r, http.MethodGet, "/service-orders/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrderRequiresCustomerName(t *testing.T) {
	r := newTestRouter(uuid.New())
	rec := doJSON(t, r, http.MethodPost, "/service-orders", map[string]any{"unit_label": "truck-7"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionEndpoint(t *testing.T) {
	r := newTestRouter(uuid.New())

	rec := doJSON(t, r, http.MethodPost, "/service-orders", map[string]any{"customer_name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.ServiceOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	path := fmt.Sprintf("/service-orders/%s/transition", created.ID)

	rec = doJSON(t, r, http.MethodPost, path, map[string]string{"status": "awaiting_approval"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.ServiceOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusAwaitingApproval, updated.Status)

	// Skipping a state is a 400 naming the rejected edge.
	rec = doJSON(t, r, http.MethodPost, path, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_transition")

	// An unknown status never reaches the state machine.
	rec = doJSON(t, r, http.MethodPost, path, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_input")
}

func TestGetUnknownOrderIs404(t *testing.T) {
	r := newTestRouter(uuid.New())
	rec := doJSON(t, r, http.MethodGet, "/service-orders/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMalformedOrderIDIs400(t *testing.T) {
	r := newTestRouter(uuid.New())
	rec := doJSON(t, r, http.MethodGet, "/service-orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

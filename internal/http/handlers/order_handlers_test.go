package handlers_test

import (
	"net/http"
	"testing"

	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/internal/store"
)

func orderBody() map[string]any {
	return map[string]any{
		"customer_name":   "Skyline Constructions",
		"customer_email":  "site@skyline.example.com",
		"project_type":    "commercial",
		"quantity":        45,
		"area":            "1200 sqft slab",
		"location":        "Plot 14, Industrial Estate",
		"requirements":    "M30 grade, pump placement",
		"estimated_value": 210000,
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/admin/orders", token, orderBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	rec = env.do(t, http.MethodGet, "/admin/orders", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var list struct {
		Orders []domain.Order `json:"orders"`
	}
	decodeJSON(t, rec, &list)
	if len(list.Orders) != 1 || list.Orders[0].Status != domain.OrderPending {
		t.Fatalf("expected one pending order, got %+v", list.Orders)
	}

	if rec = env.do(t, http.MethodPatch, "/admin/orders/"+created.ID, token, map[string]string{"status": "shipped"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status: got %d, want 400", rec.Code)
	}
	if rec = env.do(t, http.MethodPatch, "/admin/orders/"+created.ID, token, map[string]string{"customer_email": "broken"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid email: got %d, want 400", rec.Code)
	}

	if rec = env.do(t, http.MethodPatch, "/admin/orders/"+created.ID, token, map[string]string{"status": "completed"}); rec.Code != http.StatusNoContent {
		t.Fatalf("patch: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/admin/orders/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status = %d", rec.Code)
	}
	var stats store.OrderStats
	decodeJSON(t, rec, &stats)
	if stats.Total != 1 || stats.Completed != 1 || stats.Revenue != 210000 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if rec = env.do(t, http.MethodDelete, "/admin/orders/"+created.ID, token, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/admin/orders", token, nil)
	decodeJSON(t, rec, &list)
	if len(list.Orders) != 0 {
		t.Errorf("expected an empty list after delete, got %+v", list.Orders)
	}
}

func TestCreateOrderValidationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	body := orderBody()
	body["customer_email"] = "broken"

	rec := env.do(t, http.MethodPost, "/admin/orders", token, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(env.bus.published()) != 0 {
		t.Error("rejected order must not publish an event")
	}
}

func TestRecentOrdersParam(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	for i := 0; i < 3; i++ {
		if rec := env.do(t, http.MethodPost, "/admin/orders", token, orderBody()); rec.Code != http.StatusCreated {
			t.Fatalf("create: status = %d", rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, "/admin/orders/recent?n=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("recent: status = %d", rec.Code)
	}
	var recent []domain.Order
	decodeJSON(t, rec, &recent)
	if len(recent) != 2 {
		t.Errorf("expected 2 recent orders, got %d", len(recent))
	}

	if rec = env.do(t, http.MethodGet, "/admin/orders/recent?n=0", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("n=0: got %d, want 400", rec.Code)
	}
	if rec = env.do(t, http.MethodGet, "/admin/orders/recent?n=abc", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("n=abc: got %d, want 400", rec.Code)
	}
}

func TestCreateOrderPaymentDisabled(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	rec := env.do(t, http.MethodPost, "/admin/orders", token, orderBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &created)

	if rec = env.do(t, http.MethodPost, "/admin/orders/"+created.ID+"/payment-intent", token, nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled payments: got %d, want 503", rec.Code)
	}

	if rec = env.do(t, http.MethodPost, "/admin/orders/missing/payment-intent", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing order: got %d, want 404", rec.Code)
	}
}

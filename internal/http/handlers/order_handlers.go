package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/internal/http/middleware"
	"github.com/betonova/readymix-crm/internal/http/response"
	"github.com/betonova/readymix-crm/internal/payments"
	"github.com/betonova/readymix-crm/pkg/events"
	"github.com/betonova/readymix-crm/pkg/logger"
)

type orderListResponse struct {
	Orders  []domain.Order `json:"orders"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
}

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)

	if r.URL.Query().Get("refresh") == "1" {
		if err := sess.Orders.Refresh(r.Context()); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	response.WriteJSON(w, http.StatusOK, orderListResponse{
		Orders:  sess.Orders.All(),
		Loading: sess.Orders.Loading(),
		Error:   sess.Orders.Err(),
	})
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)

	var draft domain.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}

	id, err := sess.Orders.Add(r.Context(), draft)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	event := events.OrderEvent{
		OrderID:       id,
		CustomerName:  draft.CustomerName,
		CustomerEmail: draft.CustomerEmail,
		Status:        string(domain.OrderPending),
		OccurredAt:    time.Now().UTC(),
	}
	if err := h.bus.Publish(r.Context(), events.OrderCreated, event); err != nil {
		logger.ErrorContext(r.Context(), "Failed to publish order event", "order_id", id, "error", err)
	}

	response.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	id := chi.URLParam(r, "id")

	var patch domain.OrderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return
	}
	if patch.Status != nil {
		if _, ok := domain.ParseOrderStatus(string(*patch.Status)); !ok {
			response.BadRequest(w, "Invalid status value")
			return
		}
	}
	if patch.Priority != nil {
		if _, ok := domain.ParsePriority(string(*patch.Priority)); !ok {
			response.BadRequest(w, "Invalid priority value")
			return
		}
	}
	if patch.CustomerEmail != nil && !domain.ValidEmail(*patch.CustomerEmail) {
		response.BadRequest(w, "Invalid customer email")
		return
	}

	if err := sess.Orders.Update(r.Context(), id, patch); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	id := chi.URLParam(r, "id")

	if err := sess.Orders.Remove(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) OrderStats(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	response.WriteJSON(w, http.StatusOK, sess.Orders.Stats())
}

func (h *Handlers) RecentOrders(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)

	n := 5
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			response.BadRequest(w, "Invalid n parameter")
			return
		}
		n = parsed
	}

	response.WriteJSON(w, http.StatusOK, sess.Orders.Recent(n))
}

// CreateOrderPayment opens a Stripe payment intent over the order's
// estimated value.
func (h *Handlers) CreateOrderPayment(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	id := chi.URLParam(r, "id")

	var order *domain.Order
	for _, o := range sess.Orders.All() {
		if o.ID == id {
			order = &o
			break
		}
	}
	if order == nil {
		response.NotFound(w, "order not found")
		return
	}

	intent, err := h.payments.CreateOrderIntent(r.Context(), *order)
	if errors.Is(err, payments.ErrDisabled) {
		response.WriteError(w, http.StatusServiceUnavailable, err.Error(), response.CodeInternalError)
		return
	}
	if err != nil {
		response.BackendFault(w, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, intent)
}

// StreamOrders pushes the order list over SSE on every change.
func (h *Handlers) StreamOrders(w http.ResponseWriter, r *http.Request) {
	sess := middleware.Session(r)
	streamSnapshots(w, r, sess.Orders.Subscribe)
}

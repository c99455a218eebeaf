package store

import (
	"context"
	"sync"
	"time"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// Orders owns the reactive collection of sales orders. Unlike inquiries there
// is no public path: every operation, including Add, requires the session's
// identity.
type Orders struct {
	docs    backend.DocumentStore
	session *Session

	mu        sync.Mutex
	items     []domain.Order
	loading   bool
	lastErr   string
	unsubDocs backend.Unsubscribe
	subs      map[int]orderSubscriber
	nextSubID int

	unsubAuth backend.Unsubscribe
}

type orderSubscriber struct {
	onSnapshot func([]domain.Order)
	onError    func(error)
}

func NewOrders(docs backend.DocumentStore, session *Session) *Orders {
	st := &Orders{
		docs:    docs,
		session: session,
		loading: true,
		subs:    make(map[int]orderSubscriber),
	}
	st.unsubAuth = session.OnChange(st.handleIdentity)
	return st
}

// Add validates and persists a new order. Status and priority are forced
// regardless of caller input; timestamps are server-assigned.
func (st *Orders) Add(ctx context.Context, draft domain.OrderDraft) (string, error) {
	if st.session.Identity() == nil {
		return "", &AuthRequiredError{Op: "add order"}
	}

	if err := validateDraft(draft); err != nil {
		return "", err
	}

	fields := map[string]any{
		"customer_name":   draft.CustomerName,
		"customer_email":  draft.CustomerEmail,
		"customer_phone":  draft.CustomerPhone,
		"project_type":    draft.ProjectType,
		"quantity":        draft.Quantity,
		"area":            draft.Area,
		"location":        draft.Location,
		"requirements":    draft.Requirements,
		"estimated_value": draft.EstimatedValue,
		"notes":           draft.Notes,
		"assigned_to":     draft.AssignedTo,
		"status":          string(domain.OrderPending),
		"priority":        string(domain.PriorityMedium),
	}
	if draft.DeliveryDate != nil {
		fields["delivery_date"] = draft.DeliveryDate.UTC().Format(time.RFC3339Nano)
	}

	id, err := st.docs.Create(ctx, backend.CollectionOrders, fields)
	if err != nil {
		return "", st.fault("add order", err)
	}

	logger.InfoContext(ctx, "Order added", "order_id", id)
	return id, nil
}

// Update merges a partial patch into an order. Requires an identity.
func (st *Orders) Update(ctx context.Context, id string, patch domain.OrderPatch) error {
	if st.session.Identity() == nil {
		return &AuthRequiredError{Op: "update order"}
	}

	if err := st.docs.Update(ctx, backend.CollectionOrders, id, patch.Fields()); err != nil {
		return st.fault("update order", err)
	}
	return nil
}

// Remove deletes an order. Requires an identity.
func (st *Orders) Remove(ctx context.Context, id string) error {
	if st.session.Identity() == nil {
		return &AuthRequiredError{Op: "delete order"}
	}

	if err := st.docs.Delete(ctx, backend.CollectionOrders, id); err != nil {
		return st.fault("delete order", err)
	}
	return nil
}

// Refresh re-fetches the collection once. A no-op when signed out.
func (st *Orders) Refresh(ctx context.Context) error {
	if st.session.Identity() == nil {
		return nil
	}

	st.mu.Lock()
	st.loading = true
	st.mu.Unlock()

	docs, err := st.docs.List(ctx, backend.CollectionOrders, "createdAt", true)
	if err != nil {
		st.mu.Lock()
		st.loading = false
		st.lastErr = err.Error()
		st.mu.Unlock()
		return st.fault("refresh orders", err)
	}

	st.applySnapshot(docs)
	return nil
}

// All returns the current list, newest first.
func (st *Orders) All() []domain.Order {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]domain.Order, len(st.items))
	copy(out, st.items)
	return out
}

func (st *Orders) Loading() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loading
}

func (st *Orders) Err() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastErr
}

// OrderStats are read-side aggregates recomputed from the current list.
type OrderStats struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Processing     int     `json:"processing"`
	Completed      int     `json:"completed"`
	Cancelled      int     `json:"cancelled"`
	Revenue        float64 `json:"revenue"`         // sum of completed order values
	PendingRevenue float64 `json:"pending_revenue"` // sum of pending order values
}

func (st *Orders) Stats() OrderStats {
	st.mu.Lock()
	defer st.mu.Unlock()

	stats := OrderStats{Total: len(st.items)}
	for _, o := range st.items {
		switch o.Status {
		case domain.OrderPending:
			stats.Pending++
			stats.PendingRevenue += o.EstimatedValue
		case domain.OrderProcessing:
			stats.Processing++
		case domain.OrderCompleted:
			stats.Completed++
			stats.Revenue += o.EstimatedValue
		case domain.OrderCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// Recent returns the n newest orders.
func (st *Orders) Recent(n int) []domain.Order {
	st.mu.Lock()
	defer st.mu.Unlock()

	if n > len(st.items) {
		n = len(st.items)
	}
	if n < 0 {
		n = 0
	}
	out := make([]domain.Order, n)
	copy(out, st.items[:n])
	return out
}

// Subscribe registers a snapshot observer; fires immediately with the current
// list. The returned teardown is idempotent.
func (st *Orders) Subscribe(onSnapshot func([]domain.Order), onError func(error)) backend.Unsubscribe {
	st.mu.Lock()
	id := st.nextSubID
	st.nextSubID++
	st.subs[id] = orderSubscriber{onSnapshot: onSnapshot, onError: onError}
	current := make([]domain.Order, len(st.items))
	copy(current, st.items)
	st.mu.Unlock()

	onSnapshot(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			st.mu.Lock()
			delete(st.subs, id)
			st.mu.Unlock()
		})
	}
}

// Close tears down the session watch and any live subscription.
func (st *Orders) Close() {
	if st.unsubAuth != nil {
		st.unsubAuth()
	}
	st.mu.Lock()
	unsub := st.unsubDocs
	st.unsubDocs = nil
	st.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (st *Orders) handleIdentity(identity *domain.Identity) {
	if identity != nil {
		st.startLive()
		return
	}

	st.mu.Lock()
	unsub := st.unsubDocs
	st.unsubDocs = nil
	st.items = nil
	st.loading = false
	st.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	st.broadcast(nil)
}

func (st *Orders) startLive() {
	st.mu.Lock()
	if st.unsubDocs != nil {
		st.mu.Unlock()
		return
	}
	st.loading = true
	st.mu.Unlock()

	unsub, err := st.docs.Subscribe(backend.CollectionOrders, "createdAt", true, st.applySnapshot, st.applyError)
	if err != nil {
		st.applyError(err)
		return
	}

	st.mu.Lock()
	st.unsubDocs = unsub
	st.mu.Unlock()
}

func (st *Orders) applySnapshot(docs []backend.Document) {
	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, orderFromDoc(doc))
	}

	st.mu.Lock()
	st.items = items
	st.loading = false
	st.lastErr = ""
	st.mu.Unlock()

	st.broadcast(items)
}

func (st *Orders) applyError(err error) {
	st.mu.Lock()
	st.loading = false
	st.lastErr = err.Error()
	subs := st.snapshotSubs()
	st.mu.Unlock()

	logger.Error("Order subscription error", "error", err)
	for _, s := range subs {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func (st *Orders) broadcast(items []domain.Order) {
	st.mu.Lock()
	subs := st.snapshotSubs()
	st.mu.Unlock()

	for _, s := range subs {
		out := make([]domain.Order, len(items))
		copy(out, items)
		s.onSnapshot(out)
	}
}

// snapshotSubs must be called with st.mu held.
func (st *Orders) snapshotSubs() []orderSubscriber {
	subs := make([]orderSubscriber, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	return subs
}

func (st *Orders) fault(op string, err error) error {
	st.mu.Lock()
	st.lastErr = err.Error()
	st.mu.Unlock()
	return &BackendFault{Op: op, Err: err}
}

func validateDraft(draft domain.OrderDraft) error {
	required := []struct {
		field, value string
	}{
		{"customer_name", draft.CustomerName},
		{"project_type", draft.ProjectType},
		{"area", draft.Area},
		{"location", draft.Location},
		{"requirements", draft.Requirements},
	}
	for _, r := range required {
		if domain.Blank(r.value) {
			return &ValidationError{Field: r.field, Reason: "must not be empty"}
		}
	}
	if !domain.ValidEmail(draft.CustomerEmail) {
		return &ValidationError{Field: "customer_email", Reason: "must be a valid email address"}
	}
	return nil
}

func orderFromDoc(doc backend.Document) domain.Order {
	order := domain.Order{
		ID:             doc.ID,
		CustomerName:   stringField(doc.Fields, "customer_name"),
		CustomerEmail:  stringField(doc.Fields, "customer_email"),
		CustomerPhone:  stringField(doc.Fields, "customer_phone"),
		ProjectType:    stringField(doc.Fields, "project_type"),
		Quantity:       numberField(doc.Fields, "quantity"),
		Area:           stringField(doc.Fields, "area"),
		Location:       stringField(doc.Fields, "location"),
		Requirements:   stringField(doc.Fields, "requirements"),
		EstimatedValue: numberField(doc.Fields, "estimated_value"),
		Notes:          stringField(doc.Fields, "notes"),
		AssignedTo:     stringField(doc.Fields, "assigned_to"),
		Status:         domain.OrderPending,
		Priority:       domain.PriorityMedium,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if status, ok := domain.ParseOrderStatus(stringField(doc.Fields, "status")); ok {
		order.Status = status
	}
	if priority, ok := domain.ParsePriority(stringField(doc.Fields, "priority")); ok {
		order.Priority = priority
	}
	if raw, ok := doc.Fields["delivery_date"]; ok {
		if t, ok := backend.NormalizeTime(raw); ok {
			order.DeliveryDate = &t
		}
	}
	return order
}

func numberField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

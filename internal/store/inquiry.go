package store

import (
	"context"
	"sync"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// Inquiries owns the reactive collection of customer inquiries. Submission is
// public; everything else needs the session's identity. While an identity is
// present the store mirrors the backend collection through a live
// subscription, newest first.
type Inquiries struct {
	docs    backend.DocumentStore
	session *Session

	mu        sync.Mutex
	items     []domain.Inquiry
	loading   bool
	lastErr   string
	unsubDocs backend.Unsubscribe
	subs      map[int]inquirySubscriber
	nextSubID int

	unsubAuth backend.Unsubscribe
}

type inquirySubscriber struct {
	onSnapshot func([]domain.Inquiry)
	onError    func(error)
}

func NewInquiries(docs backend.DocumentStore, session *Session) *Inquiries {
	st := &Inquiries{
		docs:    docs,
		session: session,
		loading: true,
		subs:    make(map[int]inquirySubscriber),
	}
	st.unsubAuth = session.OnChange(st.handleIdentity)
	return st
}

// Submit validates and persists a new inquiry. Public: no identity needed.
// Status and priority are forced regardless of caller input; timestamps are
// server-assigned.
func (st *Inquiries) Submit(ctx context.Context, sub domain.InquirySubmission) (string, error) {
	if domain.Blank(sub.Name) {
		return "", &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if domain.Blank(sub.Message) {
		return "", &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if !domain.ValidEmail(sub.Email) {
		return "", &ValidationError{Field: "email", Reason: "must be a valid email address"}
	}

	fields := map[string]any{
		"name":     sub.Name,
		"email":    sub.Email,
		"phone":    sub.Phone,
		"message":  sub.Message,
		"status":   string(domain.InquiryNotContacted),
		"priority": string(domain.PriorityMedium),
	}

	id, err := st.docs.Create(ctx, backend.CollectionInquiries, fields)
	if err != nil {
		return "", st.fault("submit inquiry", err)
	}

	logger.InfoContext(ctx, "Inquiry submitted", "inquiry_id", id)
	return id, nil
}

// Update merges a partial patch into an inquiry. Requires an identity.
func (st *Inquiries) Update(ctx context.Context, id string, patch domain.InquiryPatch) error {
	if st.session.Identity() == nil {
		return &AuthRequiredError{Op: "update inquiry"}
	}

	if err := st.docs.Update(ctx, backend.CollectionInquiries, id, patch.Fields()); err != nil {
		return st.fault("update inquiry", err)
	}
	return nil
}

// Remove deletes an inquiry. Requires an identity.
func (st *Inquiries) Remove(ctx context.Context, id string) error {
	if st.session.Identity() == nil {
		return &AuthRequiredError{Op: "delete inquiry"}
	}

	if err := st.docs.Delete(ctx, backend.CollectionInquiries, id); err != nil {
		return st.fault("delete inquiry", err)
	}
	return nil
}

// Refresh re-fetches the collection once. A no-op when signed out, matching
// the live subscription's gate.
func (st *Inquiries) Refresh(ctx context.Context) error {
	if st.session.Identity() == nil {
		return nil
	}

	st.mu.Lock()
	st.loading = true
	st.mu.Unlock()

	docs, err := st.docs.List(ctx, backend.CollectionInquiries, "createdAt", true)
	if err != nil {
		st.mu.Lock()
		st.loading = false
		st.lastErr = err.Error()
		st.mu.Unlock()
		return st.fault("refresh inquiries", err)
	}

	st.applySnapshot(docs)
	return nil
}

// All returns the current list, newest first.
func (st *Inquiries) All() []domain.Inquiry {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]domain.Inquiry, len(st.items))
	copy(out, st.items)
	return out
}

func (st *Inquiries) Loading() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.loading
}

// Err returns the last recorded error message, empty when healthy.
func (st *Inquiries) Err() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastErr
}

// Subscribe registers a snapshot observer. The observer fires immediately
// with the current list and again on every change. The returned teardown is
// idempotent.
func (st *Inquiries) Subscribe(onSnapshot func([]domain.Inquiry), onError func(error)) backend.Unsubscribe {
	st.mu.Lock()
	id := st.nextSubID
	st.nextSubID++
	st.subs[id] = inquirySubscriber{onSnapshot: onSnapshot, onError: onError}
	current := make([]domain.Inquiry, len(st.items))
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
func (st *Inquiries) Close() {
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

func (st *Inquiries) handleIdentity(identity *domain.Identity) {
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

func (st *Inquiries) startLive() {
	st.mu.Lock()
	if st.unsubDocs != nil {
		st.mu.Unlock()
		return
	}
	st.loading = true
	st.mu.Unlock()

	unsub, err := st.docs.Subscribe(backend.CollectionInquiries, "createdAt", true, st.applySnapshot, st.applyError)
	if err != nil {
		st.applyError(err)
		return
	}

	st.mu.Lock()
	st.unsubDocs = unsub
	st.mu.Unlock()
}

func (st *Inquiries) applySnapshot(docs []backend.Document) {
	items := make([]domain.Inquiry, 0, len(docs))
	for _, doc := range docs {
		items = append(items, inquiryFromDoc(doc))
	}

	st.mu.Lock()
	st.items = items
	st.loading = false
	st.lastErr = ""
	st.mu.Unlock()

	st.broadcast(items)
}

func (st *Inquiries) applyError(err error) {
	st.mu.Lock()
	st.loading = false
	st.lastErr = err.Error()
	subs := st.snapshotSubs()
	st.mu.Unlock()

	logger.Error("Inquiry subscription error", "error", err)
	for _, s := range subs {
		if s.onError != nil {
			s.onError(err)
		}
	}
}

func (st *Inquiries) broadcast(items []domain.Inquiry) {
	st.mu.Lock()
	subs := st.snapshotSubs()
	st.mu.Unlock()

	for _, s := range subs {
		out := make([]domain.Inquiry, len(items))
		copy(out, items)
		s.onSnapshot(out)
	}
}

// snapshotSubs must be called with st.mu held.
func (st *Inquiries) snapshotSubs() []inquirySubscriber {
	subs := make([]inquirySubscriber, 0, len(st.subs))
	for _, s := range st.subs {
		subs = append(subs, s)
	}
	return subs
}

func (st *Inquiries) fault(op string, err error) error {
	st.mu.Lock()
	st.lastErr = err.Error()
	st.mu.Unlock()
	return &BackendFault{Op: op, Err: err}
}

func inquiryFromDoc(doc backend.Document) domain.Inquiry {
	inq := domain.Inquiry{
		ID:        doc.ID,
		Name:      stringField(doc.Fields, "name"),
		Email:     stringField(doc.Fields, "email"),
		Phone:     stringField(doc.Fields, "phone"),
		Message:   stringField(doc.Fields, "message"),
		Notes:     stringField(doc.Fields, "notes"),
		Status:    domain.InquiryNotContacted,
		Priority:  domain.PriorityMedium,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if status, ok := domain.ParseInquiryStatus(stringField(doc.Fields, "status")); ok {
		inq.Status = status
	}
	if priority, ok := domain.ParsePriority(stringField(doc.Fields, "priority")); ok {
		inq.Priority = priority
	}
	return inq
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/betonova/readymix-crm/internal/app"
	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/http/handlers"
	mw "github.com/betonova/readymix-crm/internal/http/middleware"
	"github.com/betonova/readymix-crm/internal/payments"
	"github.com/betonova/readymix-crm/pkg/config"
)

// stubDocs is an in-memory document store with working snapshot
// subscriptions, so the admin stores behind the handlers see writes.
type stubDocs struct {
	mu      sync.Mutex
	seq     int
	clock   time.Time
	records map[string]map[string]*stubRecord
	subs    []*stubSub
}

type stubRecord struct {
	fields    map[string]any
	createdAt time.Time
	updatedAt time.Time
}

type stubSub struct {
	collection string
	desc       bool
	onChange   func([]backend.Document)
	active     bool
}

func newStubDocs() *stubDocs {
	return &stubDocs{
		records: make(map[string]map[string]*stubRecord),
		clock:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *stubDocs) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("doc-%d", s.seq)
	s.clock = s.clock.Add(time.Second)
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]*stubRecord)
	}
	s.records[collection][id] = &stubRecord{fields: copied, createdAt: s.clock, updatedAt: s.clock}
	s.mu.Unlock()

	s.broadcast(collection)
	return id, nil
}

func (s *stubDocs) Put(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	s.clock = s.clock.Add(time.Second)
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	if s.records[collection] == nil {
		s.records[collection] = make(map[string]*stubRecord)
	}
	s.records[collection][id] = &stubRecord{fields: copied, createdAt: s.clock, updatedAt: s.clock}
	s.mu.Unlock()

	s.broadcast(collection)
	return nil
}

func (s *stubDocs) List(_ context.Context, collection, _ string, desc bool) ([]backend.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(collection, desc), nil
}

func (s *stubDocs) GetOne(_ context.Context, collection, id string) (*backend.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[collection][id]
	if !ok {
		return nil, nil
	}
	doc := rec.toDoc(id)
	return &doc, nil
}

func (s *stubDocs) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	rec, ok := s.records[collection][id]
	if !ok {
		s.mu.Unlock()
		return backend.ErrNotFound
	}
	for k, v := range fields {
		rec.fields[k] = v
	}
	s.clock = s.clock.Add(time.Second)
	rec.updatedAt = s.clock
	s.mu.Unlock()

	s.broadcast(collection)
	return nil
}

func (s *stubDocs) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	if _, ok := s.records[collection][id]; !ok {
		s.mu.Unlock()
		return backend.ErrNotFound
	}
	delete(s.records[collection], id)
	s.mu.Unlock()

	s.broadcast(collection)
	return nil
}

func (s *stubDocs) Subscribe(collection, _ string, desc bool, onChange func([]backend.Document), _ func(error)) (backend.Unsubscribe, error) {
	s.mu.Lock()
	sub := &stubSub{collection: collection, desc: desc, onChange: onChange, active: true}
	s.subs = append(s.subs, sub)
	initial := s.snapshotLocked(collection, desc)
	s.mu.Unlock()

	onChange(initial)
	return func() {
		s.mu.Lock()
		sub.active = false
		s.mu.Unlock()
	}, nil
}

func (s *stubDocs) broadcast(collection string) {
	s.mu.Lock()
	type delivery struct {
		fn   func([]backend.Document)
		docs []backend.Document
	}
	var deliveries []delivery
	for _, sub := range s.subs {
		if sub.active && sub.collection == collection {
			deliveries = append(deliveries, delivery{sub.onChange, s.snapshotLocked(collection, sub.desc)})
		}
	}
	s.mu.Unlock()

	for _, d := range deliveries {
		d.fn(d.docs)
	}
}

func (s *stubDocs) snapshotLocked(collection string, desc bool) []backend.Document {
	docs := make([]backend.Document, 0, len(s.records[collection]))
	for id, rec := range s.records[collection] {
		docs = append(docs, rec.toDoc(id))
	}
	sort.Slice(docs, func(i, j int) bool {
		if desc {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs
}

func (r *stubRecord) toDoc(id string) backend.Document {
	fields := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	return backend.Document{ID: id, Fields: fields, CreatedAt: r.createdAt, UpdatedAt: r.updatedAt}
}

var _ backend.DocumentStore = (*stubDocs)(nil)

// stubProvider accepts one fixed admin account.
type stubProvider struct {
	mu        sync.Mutex
	current   *backend.Principal
	listeners []func(*backend.Principal)
}

func (p *stubProvider) SignInWithPassword(_ context.Context, email, password string) (*backend.Principal, error) {
	if email != "ops@betonova.com" || password != "secret" {
		return nil, backend.ErrInvalidCredentials
	}
	principal := &backend.Principal{ID: "admin-1", Name: "Ops", Email: email}
	p.fire(principal)
	return principal, nil
}

func (p *stubProvider) SignOut(context.Context) error {
	p.fire(nil)
	return nil
}

func (p *stubProvider) OnAuthStateChange(fn func(*backend.Principal)) backend.Unsubscribe {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	current := p.current
	p.mu.Unlock()
	fn(current)
	return func() {}
}

func (p *stubProvider) fire(principal *backend.Principal) {
	p.mu.Lock()
	p.current = principal
	listeners := append([]func(*backend.Principal){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(principal)
	}
}

var _ backend.IdentityProvider = (*stubProvider)(nil)

// stubBus records published events.
type stubBus struct {
	mu       sync.Mutex
	subjects []string
}

func (b *stubBus) Publish(_ context.Context, subject string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	return nil
}

func (b *stubBus) Close() error { return nil }

func (b *stubBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.subjects...)
}

type testEnv struct {
	router http.Handler
	docs   *stubDocs
	bus    *stubBus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	docs := newStubDocs()
	registry := app.NewRegistry(docs, func() backend.IdentityProvider { return &stubProvider{} }, config.AuthConfig{
		JWTSecret:  "test-secret",
		SessionTTL: time.Hour,
		SweepEvery: time.Hour,
	})
	t.Cleanup(registry.Close)

	public := app.NewPublic(docs)
	t.Cleanup(public.ClosePublic)

	bus := &stubBus{}
	h := handlers.New(registry, public, bus, payments.NewClient(config.StripeConfig{Currency: "inr"}))

	r := chi.NewRouter()
	r.Post("/contact", h.SubmitContact)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.With(mw.RequireSession(registry)).Post("/logout", h.Logout)
		r.With(mw.RequireSession(registry)).Get("/me", h.Me)
	})
	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireSession(registry))
		r.Route("/inquiries", func(r chi.Router) {
			r.Get("/", h.ListInquiries)
			r.Get("/stream", h.StreamInquiries)
			r.Patch("/{id}", h.UpdateInquiry)
			r.Delete("/{id}", h.DeleteInquiry)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/stats", h.OrderStats)
			r.Get("/recent", h.RecentOrders)
			r.Patch("/{id}", h.UpdateOrder)
			r.Delete("/{id}", h.DeleteOrder)
			r.Post("/{id}/payment-intent", h.CreateOrderPayment)
		})
	})

	return &testEnv{router: r, docs: docs, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "ops@betonova.com",
		"password": "secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	return resp.Token
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

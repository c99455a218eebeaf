package store_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/betonova/readymix-crm/internal/backend"
)

// ---------- Fakes ----------

// fakeDocs is an in-memory document store that records every call and pushes
// snapshots to subscribers on each write, like the real backend.
type fakeDocs struct {
	mu      sync.Mutex
	calls   []string
	records map[string]map[string]*fakeRecord // collection -> id -> record
	seq     int
	clock   time.Time

	subs      map[int]*fakeSub
	nextSubID int

	failCreate error
	failUpdate error
	failGetOne error
	failList   error
}

type fakeRecord struct {
	fields    map[string]any
	createdAt time.Time
	updatedAt time.Time
}

func (r *fakeRecord) toDoc(id string) backend.Document {
	fields := make(map[string]any, len(r.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	return backend.Document{ID: id, Fields: fields, CreatedAt: r.createdAt, UpdatedAt: r.updatedAt}
}

type fakeSub struct {
	collection string
	desc       bool
	onChange   func([]backend.Document)
	onError    func(error)
	active     bool
	unsubCalls int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		records: make(map[string]map[string]*fakeRecord),
		subs:    make(map[int]*fakeSub),
		clock:   time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDocs) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeDocs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeDocs) Create(_ context.Context, collection string, fields map[string]any) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "create:"+collection)
	if f.failCreate != nil {
		f.mu.Unlock()
		return "", f.failCreate
	}
	f.seq++
	id := fmt.Sprintf("doc-%d", f.seq)
	now := f.tick()
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	if f.records[collection] == nil {
		f.records[collection] = make(map[string]*fakeRecord)
	}
	f.records[collection][id] = &fakeRecord{fields: copied, createdAt: now, updatedAt: now}
	f.mu.Unlock()

	f.broadcast(collection)
	return id, nil
}

func (f *fakeDocs) Put(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	f.calls = append(f.calls, "put:"+collection)
	now := f.tick()
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	if f.records[collection] == nil {
		f.records[collection] = make(map[string]*fakeRecord)
	}
	f.records[collection][id] = &fakeRecord{fields: copied, createdAt: now, updatedAt: now}
	f.mu.Unlock()

	f.broadcast(collection)
	return nil
}

func (f *fakeDocs) List(_ context.Context, collection, _ string, desc bool) ([]backend.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "list:"+collection)
	if f.failList != nil {
		f.mu.Unlock()
		return nil, f.failList
	}
	docs := f.snapshotLocked(collection, desc)
	f.mu.Unlock()
	return docs, nil
}

func (f *fakeDocs) GetOne(_ context.Context, collection, id string) (*backend.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "getone:"+collection)
	if f.failGetOne != nil {
		return nil, f.failGetOne
	}
	rec, ok := f.records[collection][id]
	if !ok {
		return nil, nil
	}
	doc := rec.toDoc(id)
	return &doc, nil
}

func (f *fakeDocs) Update(_ context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	f.calls = append(f.calls, "update:"+collection)
	if f.failUpdate != nil {
		f.mu.Unlock()
		return f.failUpdate
	}
	rec, ok := f.records[collection][id]
	if !ok {
		f.mu.Unlock()
		return backend.ErrNotFound
	}
	for k, v := range fields {
		rec.fields[k] = v
	}
	rec.updatedAt = f.tick()
	f.mu.Unlock()

	f.broadcast(collection)
	return nil
}

func (f *fakeDocs) Delete(_ context.Context, collection, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, "delete:"+collection)
	if _, ok := f.records[collection][id]; !ok {
		f.mu.Unlock()
		return backend.ErrNotFound
	}
	delete(f.records[collection], id)
	f.mu.Unlock()

	f.broadcast(collection)
	return nil
}

func (f *fakeDocs) Subscribe(collection, _ string, desc bool, onChange func([]backend.Document), onError func(error)) (backend.Unsubscribe, error) {
	f.mu.Lock()
	f.calls = append(f.calls, "subscribe:"+collection)
	id := f.nextSubID
	f.nextSubID++
	sub := &fakeSub{collection: collection, desc: desc, onChange: onChange, onError: onError, active: true}
	f.subs[id] = sub
	initial := f.snapshotLocked(collection, desc)
	f.mu.Unlock()

	onChange(initial)

	return func() {
		f.mu.Lock()
		sub.unsubCalls++
		sub.active = false
		f.mu.Unlock()
	}, nil
}

func (f *fakeDocs) broadcast(collection string) {
	f.mu.Lock()
	type delivery struct {
		fn   func([]backend.Document)
		docs []backend.Document
	}
	var deliveries []delivery
	for _, sub := range f.subs {
		if sub.active && sub.collection == collection {
			deliveries = append(deliveries, delivery{sub.onChange, f.snapshotLocked(collection, sub.desc)})
		}
	}
	f.mu.Unlock()

	for _, d := range deliveries {
		d.fn(d.docs)
	}
}

func (f *fakeDocs) pushError(collection string, err error) {
	f.mu.Lock()
	var fns []func(error)
	for _, sub := range f.subs {
		if sub.active && sub.collection == collection && sub.onError != nil {
			fns = append(fns, sub.onError)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

// snapshotLocked must be called with f.mu held.
func (f *fakeDocs) snapshotLocked(collection string, desc bool) []backend.Document {
	docs := make([]backend.Document, 0, len(f.records[collection]))
	for id, rec := range f.records[collection] {
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

func (f *fakeDocs) fieldsOf(collection, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[collection][id]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(rec.fields))
	for k, v := range rec.fields {
		out[k] = v
	}
	return out
}

func (f *fakeDocs) updatedAtOf(collection, id string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[collection][id]; ok {
		return rec.updatedAt
	}
	return time.Time{}
}

func (f *fakeDocs) subscriptions(collection string) []*fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	var subs []*fakeSub
	for _, sub := range f.subs {
		if sub.collection == collection {
			subs = append(subs, sub)
		}
	}
	return subs
}

var _ backend.DocumentStore = (*fakeDocs)(nil)

// fakeProvider drives auth-state transitions by hand.
type fakeProvider struct {
	mu        sync.Mutex
	listeners []func(*backend.Principal)
	current   *backend.Principal

	accept       map[string]string // email -> password
	principals   map[string]*backend.Principal
	transportErr error
	deferInitial bool // skip the immediate notification to model a slow provider
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accept:     make(map[string]string),
		principals: make(map[string]*backend.Principal),
	}
}

func (p *fakeProvider) addAccount(principal *backend.Principal, password string) {
	p.accept[principal.Email] = password
	p.principals[principal.Email] = principal
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (*backend.Principal, error) {
	if p.transportErr != nil {
		return nil, p.transportErr
	}
	if stored, ok := p.accept[email]; !ok || stored != password {
		return nil, backend.ErrInvalidCredentials
	}
	principal := p.principals[email]
	p.fire(principal)
	return principal, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.fire(nil)
	return nil
}

func (p *fakeProvider) OnAuthStateChange(fn func(*backend.Principal)) backend.Unsubscribe {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	current := p.current
	skip := p.deferInitial
	p.mu.Unlock()

	if !skip {
		fn(current)
	}
	return func() {}
}

func (p *fakeProvider) fire(principal *backend.Principal) {
	p.mu.Lock()
	p.current = principal
	listeners := append([]func(*backend.Principal){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(principal)
	}
}

var _ backend.IdentityProvider = (*fakeProvider)(nil)

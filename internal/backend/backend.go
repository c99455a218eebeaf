// Package backend defines the interfaces of the managed document store and
// identity provider everything else is built on. Implementations live in
// subpackages; stores and handlers only ever see these types.
package backend

import (
	"context"
	"errors"
	"time"
)

// Collection names used across the application.
const (
	CollectionInquiries = "inquiries"
	CollectionOrders    = "orders"
	CollectionProfiles  = "profiles"
)

// Document is one record of a collection. Timestamps are server-assigned and
// normalized to time.Time at this boundary; Fields never carries them.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unsubscribe tears down a live subscription. Implementations must make it
// idempotent: calling it twice is a no-op, and no callback fires afterwards.
type Unsubscribe func()

// DocumentStore is the document side of the backend service.
type DocumentStore interface {
	// Create persists a new document and returns its assigned ID.
	// CreatedAt/UpdatedAt are stamped server-side.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// List returns the full collection ordered by the given field.
	List(ctx context.Context, collection, orderBy string, desc bool) ([]Document, error)

	// GetOne returns a single document, or nil if it does not exist.
	GetOne(ctx context.Context, collection, id string) (*Document, error)

	// Put creates or replaces a document under a caller-chosen ID. Used for
	// documents keyed by an external identifier, such as admin profiles.
	Put(ctx context.Context, collection, id string, fields map[string]any) error

	// Update merges fields into an existing document and advances UpdatedAt.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	Delete(ctx context.Context, collection, id string) error

	// Subscribe pushes the full ordered snapshot immediately and again on
	// every change to the collection. onError fires on transport failures.
	Subscribe(collection, orderBy string, desc bool, onChange func([]Document), onError func(error)) (Unsubscribe, error)
}

// Principal is the raw identity-provider record, before profile merge.
type Principal struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

// ErrInvalidCredentials marks a rejected sign-in, as opposed to a transport
// or service fault.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNotFound marks an update or delete addressing a document that does not
// exist.
var ErrNotFound = errors.New("document not found")

// IdentityProvider is the auth side of the backend service. A provider value
// carries the auth state of one client session.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Principal, error)
	SignOut(ctx context.Context) error

	// OnAuthStateChange fires once immediately with the current principal
	// (or nil) and again on every transition.
	OnAuthStateChange(fn func(*Principal)) Unsubscribe
}

// NormalizeTime coerces the timestamp representations that show up at the
// storage boundary into a time.Time. Everything downstream works with the
// returned value only.
func NormalizeTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	case int64:
		return time.Unix(t, 0).UTC(), true
	case float64:
		return time.Unix(int64(t), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

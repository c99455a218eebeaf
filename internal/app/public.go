package app

import (
	"context"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/store"
)

// anonProvider never reports a principal. It backs the shared public session
// used by the contact form.
type anonProvider struct{}

func (anonProvider) SignInWithPassword(context.Context, string, string) (*backend.Principal, error) {
	return nil, backend.ErrInvalidCredentials
}

func (anonProvider) SignOut(context.Context) error { return nil }

func (anonProvider) OnAuthStateChange(fn func(*backend.Principal)) backend.Unsubscribe {
	fn(nil)
	return func() {}
}

// NewPublic builds the unauthenticated store triple. Only inquiry submission
// works through it; everything auth-gated stays locked.
func NewPublic(docs backend.DocumentStore) *Session {
	auth := store.NewSession(anonProvider{}, docs)
	return &Session{
		Auth:      auth,
		Inquiries: store.NewInquiries(docs, auth),
		Orders:    store.NewOrders(docs, auth),
	}
}

// ClosePublic tears the shared triple down at shutdown.
func (s *Session) ClosePublic() {
	s.close()
}

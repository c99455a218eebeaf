package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// Session is the single source of truth for who is signed in. It bridges the
// identity provider's notifications to application state; the inquiry and
// order stores gate their live subscriptions on it.
type Session struct {
	provider backend.IdentityProvider
	docs     backend.DocumentStore

	mu        sync.Mutex
	identity  *domain.Identity
	loading   bool
	listeners map[int]func(*domain.Identity)
	nextID    int
	unsubAuth backend.Unsubscribe
}

func NewSession(provider backend.IdentityProvider, docs backend.DocumentStore) *Session {
	s := &Session{
		provider:  provider,
		docs:      docs,
		loading:   true,
		listeners: make(map[int]func(*domain.Identity)),
	}
	s.unsubAuth = provider.OnAuthStateChange(s.handleAuthState)
	return s
}

// SignIn returns false with a nil error on rejected credentials; a non-nil
// error means the backend itself failed. Prior state is kept on failure.
func (s *Session) SignIn(ctx context.Context, email, password string) (bool, error) {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	_, err := s.provider.SignInWithPassword(ctx, email, password)
	if errors.Is(err, backend.ErrInvalidCredentials) {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return false, nil
	}
	if err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		return false, &BackendFault{Op: "sign in", Err: err}
	}
	return true, nil
}

func (s *Session) SignOut(ctx context.Context) error {
	if err := s.provider.SignOut(ctx); err != nil {
		return &BackendFault{Op: "sign out", Err: err}
	}
	return nil
}

// Identity returns the current identity, or nil when signed out.
func (s *Session) Identity() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Loading reports whether the first provider notification is still pending
// or a sign-in is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// OnChange registers a listener for identity transitions. The listener fires
// immediately with the current identity and again on every change. Teardown
// is idempotent.
func (s *Session) OnChange(fn func(*domain.Identity)) backend.Unsubscribe {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	current := s.identity
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Close detaches from the identity provider.
func (s *Session) Close() {
	if s.unsubAuth != nil {
		s.unsubAuth()
	}
}

func (s *Session) handleAuthState(p *backend.Principal) {
	var identity *domain.Identity
	if p != nil {
		identity = s.buildIdentity(p)
	}

	s.mu.Lock()
	s.identity = identity
	s.loading = false
	listeners := make([]func(*domain.Identity), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(identity)
	}
}

// buildIdentity merges the provider record with the optional profile
// document. A missing or unreadable profile still yields an identity from
// provider fields, defaulting the role to admin.
func (s *Session) buildIdentity(p *backend.Principal) *domain.Identity {
	identity := &domain.Identity{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Role:   domain.RoleAdmin,
		Avatar: p.Avatar,
	}
	if identity.Name == "" {
		identity.Name = "Admin"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	doc, err := s.docs.GetOne(ctx, backend.CollectionProfiles, p.ID)
	if err != nil {
		logger.Warn("Profile fetch failed, using provider fields", "admin_id", p.ID, "error", err)
		return identity
	}
	if doc == nil {
		return identity
	}

	if name, ok := doc.Fields["name"].(string); ok && name != "" {
		identity.Name = name
	}
	if role, ok := doc.Fields["role"].(string); ok {
		if parsed, valid := domain.ParseRole(role); valid {
			identity.Role = parsed
		}
	}
	if avatar, ok := doc.Fields["avatar"].(string); ok && avatar != "" {
		identity.Avatar = avatar
	}
	return identity
}

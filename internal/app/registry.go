package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/internal/domain"
	"github.com/betonova/readymix-crm/internal/store"
	"github.com/betonova/readymix-crm/pkg/auth"
	"github.com/betonova/readymix-crm/pkg/config"
	"github.com/betonova/readymix-crm/pkg/logger"
)

// ErrInvalidLogin is returned for rejected credentials.
var ErrInvalidLogin = errors.New("invalid email or password")

// ErrNoSession is returned when a token does not resolve to a live session.
var ErrNoSession = errors.New("no active session")

// Session bundles the per-admin store triple. Each signed-in admin gets one,
// so live subscriptions and the auth gate behave per session, exactly like a
// browser tab against the backend service.
type Session struct {
	Auth      *store.Session
	Inquiries *store.Inquiries
	Orders    *store.Orders
}

func (s *Session) close() {
	s.Inquiries.Close()
	s.Orders.Close()
	s.Auth.Close()
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// ProviderFactory builds a fresh identity-provider client per session.
type ProviderFactory func() backend.IdentityProvider

// Registry owns the admin sessions, keyed by the session ID baked into the
// JWT handed out at login. Idle sessions are swept after the configured TTL.
type Registry struct {
	docs        backend.DocumentStore
	newProvider ProviderFactory
	cfg         config.AuthConfig

	mu       sync.Mutex
	sessions map[string]*entry

	stopOnce sync.Once
	stop     chan struct{}
}

func NewRegistry(docs backend.DocumentStore, newProvider ProviderFactory, cfg config.AuthConfig) *Registry {
	r := &Registry{
		docs:        docs,
		newProvider: newProvider,
		cfg:         cfg,
		sessions:    make(map[string]*entry),
		stop:        make(chan struct{}),
	}
	go r.sweep()
	return r
}

// Login signs in against the identity provider and, on success, creates the
// store triple and mints the session token.
func (r *Registry) Login(ctx context.Context, email, password string) (string, *domain.Identity, error) {
	sess := &Session{Auth: store.NewSession(r.newProvider(), r.docs)}

	ok, err := sess.Auth.SignIn(ctx, email, password)
	if err != nil {
		sess.Auth.Close()
		return "", nil, err
	}
	if !ok {
		sess.Auth.Close()
		return "", nil, ErrInvalidLogin
	}

	identity := sess.Auth.Identity()
	if identity == nil {
		sess.Auth.Close()
		return "", nil, ErrInvalidLogin
	}

	sess.Inquiries = store.NewInquiries(r.docs, sess.Auth)
	sess.Orders = store.NewOrders(r.docs, sess.Auth)

	sid := uuid.NewString()
	token, err := auth.NewSessionToken(sid, identity.Email, string(identity.Role), r.cfg.JWTSecret, r.cfg.SessionTTL)
	if err != nil {
		sess.close()
		return "", nil, err
	}

	r.mu.Lock()
	r.sessions[sid] = &entry{session: sess, lastSeen: time.Now()}
	r.mu.Unlock()

	logger.InfoContext(ctx, "Admin session opened", "email", identity.Email)
	return token, identity, nil
}

// Lookup resolves a session token to its store triple and refreshes its idle
// timer.
func (r *Registry) Lookup(token string) (*Session, error) {
	claims, err := auth.Parse(token, r.cfg.JWTSecret)
	if err != nil {
		return nil, ErrNoSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[claims.SessionID]
	if !ok {
		return nil, ErrNoSession
	}
	e.lastSeen = time.Now()
	return e.session, nil
}

// Logout signs the session out and tears down its stores. Unknown tokens are
// a no-op.
func (r *Registry) Logout(ctx context.Context, token string) error {
	claims, err := auth.Parse(token, r.cfg.JWTSecret)
	if err != nil {
		return nil
	}

	r.mu.Lock()
	e, ok := r.sessions[claims.SessionID]
	delete(r.sessions, claims.SessionID)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	err = e.session.Auth.SignOut(ctx)
	e.session.close()
	logger.InfoContext(ctx, "Admin session closed", "email", claims.Email)
	return err
}

// Close tears down every session and stops the sweeper.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range sessions {
		_ = e.session.Auth.SignOut(context.Background())
		e.session.close()
	}
}

func (r *Registry) sweep() {
	every := r.cfg.SweepEvery
	if every <= 0 {
		every = 5 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	cutoff := time.Now().Add(-r.cfg.SessionTTL)

	r.mu.Lock()
	var expired []*entry
	for sid, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(r.sessions, sid)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		_ = e.session.Auth.SignOut(context.Background())
		e.session.close()
	}
	if len(expired) > 0 {
		logger.Info("Swept idle admin sessions", "count", len(expired))
	}
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/betonova/readymix-crm/internal/backend"
	"github.com/betonova/readymix-crm/pkg/config"
)

// IdentityClient verifies credentials against the admins table and tracks the
// auth state of one client session. Each signed-in admin gets its own client.
type IdentityClient struct {
	pool *pgxpool.Pool
	org  config.OrgConfig

	mu        sync.Mutex
	current   *backend.Principal
	listeners map[int]func(*backend.Principal)
	nextID    int
}

func NewIdentityClient(pool *pgxpool.Pool, org config.OrgConfig) *IdentityClient {
	return &IdentityClient{
		pool:      pool,
		org:       org,
		listeners: make(map[int]func(*backend.Principal)),
	}
}

var _ backend.IdentityProvider = (*IdentityClient)(nil)

func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (*backend.Principal, error) {
	const q = `SELECT id, name, email, avatar, password_hash FROM admins WHERE lower(email) = lower($1)`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var (
		p    backend.Principal
		hash string
	)
	err := c.pool.QueryRow(ctx, q, strings.TrimSpace(email)).Scan(&p.ID, &p.Name, &p.Email, &p.Avatar, &hash)
	if err == pgx.ErrNoRows {
		return nil, backend.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up admin: %w", err)
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match || !c.allowed(p.Email) {
		return nil, backend.ErrInvalidCredentials
	}

	c.setCurrent(&p)
	return &p, nil
}

func (c *IdentityClient) SignOut(context.Context) error {
	c.setCurrent(nil)
	return nil
}

func (c *IdentityClient) OnAuthStateChange(fn func(*backend.Principal)) backend.Unsubscribe {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.current
	c.mu.Unlock()

	// First notification reports the current state.
	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// allowed applies the organization access rule: matching email domain, or an
// explicit allow-list entry.
func (c *IdentityClient) allowed(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if c.org.EmailDomain != "" && strings.HasSuffix(email, "@"+strings.ToLower(c.org.EmailDomain)) {
		return true
	}
	for _, allowed := range c.org.AllowList {
		if email == allowed {
			return true
		}
	}
	return false
}

func (c *IdentityClient) setCurrent(p *backend.Principal) {
	c.mu.Lock()
	c.current = p
	listeners := make([]func(*backend.Principal), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

// CreateAdmin provisions an admin account with an argon2id password hash.
// Used by the adminctl tool, not by the serving path.
func CreateAdmin(ctx context.Context, pool *pgxpool.Pool, id, name, email, password string) error {
	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	const q = `INSERT INTO admins (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`
	_, err = pool.Exec(ctx, q, id, name, strings.ToLower(strings.TrimSpace(email)), hash)
	return err
}

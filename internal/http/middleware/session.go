package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/betonova/readymix-crm/internal/app"
	"github.com/betonova/readymix-crm/internal/http/response"
)

type ctxKey string

const (
	CtxSession ctxKey = "admin_session"
	CtxToken   ctxKey = "session_token"
)

// RequireSession resolves the bearer token to a live admin session and puts
// it on the request context.
func RequireSession(reg *app.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "missing bearer token")
				return
			}
			token := strings.TrimPrefix(authz, "Bearer ")

			sess, err := reg.Lookup(token)
			if err != nil {
				response.Unauthorized(w, "session expired or invalid")
				return
			}

			ctx := context.WithValue(r.Context(), CtxSession, sess)
			ctx = context.WithValue(ctx, CtxToken, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Session returns the admin session put on the context by RequireSession.
func Session(r *http.Request) *app.Session {
	v := r.Context().Value(CtxSession)
	if v == nil {
		return nil
	}
	return v.(*app.Session)
}

// Token returns the raw bearer token of the current request.
func Token(r *http.Request) string {
	v := r.Context().Value(CtxToken)
	if v == nil {
		return ""
	}
	return v.(string)
}

package middleware

import (
	"context"
	"net/http"
	"todo_app/internal/common"
	"todo_app/internal/common/security"
	"todo_app/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const IdentityCtxKey contextKey = "identity"

type IdentityResolver interface {
	ResolveIdentity(rawToken string) (*security.Identity, error)
}

// Authenticator resolves the bearer token into an Identity and stores it in
// the request context. Missing, invalid and expired tokens all get 401.
func Authenticator(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.ResolveIdentity(jwtauth.TokenFromHeader(r))
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				common.RespondWithError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityCtxKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly must run after Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, _ := GetIdentityFromContext(r.Context())
		if err := security.RequireRole(identity, model.RoleAdmin); err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication Failed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetIdentityFromContext(ctx context.Context) (*security.Identity, bool) {
	identity, ok := ctx.Value(IdentityCtxKey).(*security.Identity)
	return identity, ok && identity != nil
}

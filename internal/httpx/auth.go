package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/retailops/checkout-api/internal/shop"
)

type ctxKey int

const actorKey ctxKey = iota

// ActorFrom returns the identity the auth middleware resolved for this
// request.
func ActorFrom(ctx context.Context) (shop.Actor, bool) {
	a, ok := ctx.Value(actorKey).(shop.Actor)
	return a, ok
}

// Auth decodes the bearer token into {userId, role}. Token issuance and
// credential checks live in the identity service; this only verifies the
// signature and trusts the claims.
type Auth struct {
	Secret []byte
	Log    *zap.Logger
}

func (a *Auth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			respondErr(w, "missing credentials", shop.ErrUnauthenticated)
			return
		}

		claims := jwt.MapClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.Secret, nil
		})
		if err != nil || !tok.Valid {
			a.Log.Debug("token rejected", zap.Error(err))
			respondErr(w, "invalid credentials", shop.ErrUnauthenticated)
			return
		}

		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if sub == "" {
			respondErr(w, "invalid credentials", fmt.Errorf("%w: token has no subject", shop.ErrUnauthenticated))
			return
		}

		actor := shop.Actor{ID: sub, Role: shop.Role(role)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
	})
}

// RequireRole sits behind Require and rejects actors without the role.
func RequireRole(role shop.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				respondErr(w, "missing credentials", shop.ErrUnauthenticated)
				return
			}
			if actor.Role != role {
				respondErr(w, "insufficient permissions", fmt.Errorf("%w: requires role %s", shop.ErrForbidden, role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}

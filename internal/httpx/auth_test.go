package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/retailops/checkout-api/internal/shop"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func echoActor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Actor", actor.ID)
		w.Header().Set("X-Role", string(actor.Role))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRequireResolvesActor(t *testing.T) {
	auth := &Auth{Secret: testSecret, Log: zap.NewNop()}
	h := auth.Require(echoActor())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "role": "CLIENT"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Header().Get("X-Actor"))
	assert.Equal(t, "CLIENT", rec.Header().Get("X-Role"))
}

func TestAuthRequireRejectsMissingToken(t *testing.T) {
	auth := &Auth{Secret: testSecret, Log: zap.NewNop()}
	h := auth.Require(echoActor())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequireRejectsBadSignature(t *testing.T) {
	auth := &Auth{Secret: testSecret, Log: zap.NewNop()}
	h := auth.Require(echoActor())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("other-secret"), jwt.MapClaims{"sub": "u1"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequireRejectsTokenWithoutSubject(t *testing.T) {
	auth := &Auth{Secret: testSecret, Log: zap.NewNop()}
	h := auth.Require(echoActor())

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"role": "CLIENT"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	auth := &Auth{Secret: testSecret, Log: zap.NewNop()}
	h := auth.Require(RequireRole(shop.RoleAdmin)(echoActor()))

	req := httptest.NewRequest(http.MethodPut, "/invoice/inv1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": "u1", "role": "CLIENT"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/invoice/inv1", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.MapClaims{"sub": "adm", "role": "ADMIN"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ADMIN", rec.Header().Get("X-Role"))
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/constants"

	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func bearer(t *testing.T, v *auth.TokenVerifier, role constants.Role) string {
	t.Helper()
	token, err := v.Issue(auth.JWTClaims{UserUUID: "user-1", ChamberUUID: "chamber-1", RoleValue: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthAndCapability(t *testing.T) {
	v := auth.NewTokenVerifier([]byte("secret"))
	h := AuthMiddleware(v, nil)(RequireCapability(constants.CapDecideContracts)(ok))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing credentials", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"volunteer cannot decide", bearer(t, v, constants.RoleVolunteer), http.StatusForbidden},
		{"chamber admin can decide", bearer(t, v, constants.RoleChamberAdmin), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/contracts/x/approve", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireCapabilityWithoutClaims(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireCapability(constants.CapViewCatalog)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0.001, 2, "10.0.0.9")
	h := limiter.Middleware(ok)

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/public/contracts/sign", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, call("10.0.0.1:1000"))
	require.Equal(t, http.StatusNoContent, call("10.0.0.1:1001"))
	require.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	require.Equal(t, http.StatusNoContent, call("10.0.0.2:1000"), "buckets are per IP")

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusNoContent, call("10.0.0.9:1000"))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = auth.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc", seen)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.NotEqual(t, "abc", seen)
}

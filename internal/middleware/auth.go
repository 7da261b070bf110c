package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/logging"
)

// AuthMiddleware resolves the caller from a bearer token or an X-API-Key
// header and stores the claims on the request context.
func AuthMiddleware(verifier *auth.TokenVerifier, keysRepo *repositories.KeysRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			authHeader := r.Header.Get("Authorization")
			apiKey := r.Header.Get("X-API-Key")

			var claims auth.UserClaims

			switch {
			case strings.HasPrefix(authHeader, "Bearer "):
				jwtClaims, err := verifier.Parse(strings.TrimPrefix(authHeader, "Bearer "))
				if err != nil {
					common.RespondError(w, start, nil, "Unauthorized. Invalid token", http.StatusUnauthorized)
					return
				}
				claims = jwtClaims

			case apiKey != "" && keysRepo != nil:
				keyClaims, err := auth.MakeClaimsFromAPIKey(r.Context(), keysRepo, apiKey)
				switch {
				case errors.Is(err, auth.ErrInactiveKey):
					common.RespondError(w, start, nil, "Unauthorized. Inactive API Key", http.StatusUnauthorized)
					return
				case err != nil:
					common.RespondError(w, start, nil, "Unauthorized. Invalid API Key", http.StatusUnauthorized)
					return
				}
				claims = keyClaims

			default:
				common.RespondError(w, start, nil, "Unauthorized. Missing credentials", http.StatusUnauthorized)
				return
			}

			logging.Debug("Request authenticated",
				"request_id", auth.GetRequestID(r.Context()),
				"source", claims.Source(),
				"role", string(claims.Role()),
				"chamber_id", claims.ChamberID(),
			)

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package middleware

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
)

// RequireCapability rejects callers whose role does not grant capability.
// It must run after AuthMiddleware.
func RequireCapability(capability constants.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetUserClaims(r.Context())
			if claims == nil {
				common.RespondError(w, time.Now(), nil, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !claims.Can(capability) {
				common.RespondError(w, time.Now(), nil,
					constants.GetErrorMessage(constants.ErrCodeForbidden)+": requires "+string(capability),
					http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

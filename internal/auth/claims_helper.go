package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/logging"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid bearer token")
	ErrUnknownAPIKey = errors.New("unknown api key")
	ErrInactiveKey   = errors.New("inactive api key")
)

// TokenVerifier checks HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

func (v *TokenVerifier) Parse(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserUUID == "" || !claims.RoleValue.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue signs claims for ttl. Production tokens come from the identity
// service; this is used by tooling and tests.
func (v *TokenVerifier) Issue(claims JWTClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// MakeClaimsFromAPIKey resolves an X-API-Key header value.
func MakeClaimsFromAPIKey(ctx context.Context, repo *repositories.KeysRepo, key string) (*APIKeyClaims, error) {
	keyRes, err := repo.GetStatus(ctx, key)
	if err != nil {
		logging.Error("API key lookup failed", "error", err.Error())
		return nil, err
	}
	if keyRes == nil {
		return nil, ErrUnknownAPIKey
	}
	if !keyRes.Status {
		return nil, ErrInactiveKey
	}
	return &APIKeyClaims{KeyID: keyRes.ApiKey, ChamberUUID: keyRes.ChamberID}, nil
}

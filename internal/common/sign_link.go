package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chamberhub/campaigns/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSignLinkInvalid = errors.New("invalid sign link")
	ErrSignLinkUsed    = errors.New("sign link already used")
)

// SignLinkClaims is the payload of the link e-mailed to a member.
type SignLinkClaims struct {
	ContractID string `json:"contract_id"`
	jwt.RegisteredClaims
}

// UsedTokenStore remembers the ids of links that were already redeemed.
type UsedTokenStore interface {
	MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) error
	IsUsed(ctx context.Context, tokenID string) (bool, error)
}

// SignLinkSigner issues and validates single-use contract signing links.
type SignLinkSigner struct {
	secretKey []byte
	ttl       time.Duration
	used      UsedTokenStore
}

func NewSignLinkSigner(secretKey []byte, ttl time.Duration, used UsedTokenStore) *SignLinkSigner {
	return &SignLinkSigner{secretKey: secretKey, ttl: ttl, used: used}
}

// Issue returns a signed token for contractID.
func (s *SignLinkSigner) Issue(contractID string) (string, error) {
	now := time.Now()
	claims := SignLinkClaims{
		ContractID: contractID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses the token and rejects expired or redeemed links.
func (s *SignLinkSigner) Validate(ctx context.Context, tokenString string) (*SignLinkClaims, error) {
	claims := &SignLinkClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignLinkInvalid, err)
	}
	if !token.Valid || claims.ContractID == "" || claims.ID == "" {
		return nil, ErrSignLinkInvalid
	}

	used, err := s.used.IsUsed(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token usage: %w", err)
	}
	if used {
		return nil, ErrSignLinkUsed
	}
	return claims, nil
}

// MarkUsed records the link as redeemed until it would have expired anyway.
func (s *SignLinkSigner) MarkUsed(ctx context.Context, claims *SignLinkClaims) error {
	ttl := s.ttl
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return s.used.MarkUsed(ctx, claims.ID, ttl)
}

// RedisTokenStore keeps redeemed link ids in Redis.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) MarkUsed(ctx context.Context, tokenID string, ttl time.Duration) error {
	key := string(constants.CachePrefixUsedSignToken) + tokenID
	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark token as used: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) IsUsed(ctx context.Context, tokenID string) (bool, error) {
	result, err := s.client.Get(ctx, string(constants.CachePrefixUsedSignToken)+tokenID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token usage: %w", err)
	}
	return result == "1", nil
}

// MemoryTokenStore is the single-process fallback.
type MemoryTokenStore struct {
	cache *cache.Cache
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{cache: cache.New(time.Hour, 10*time.Minute)}
}

func (s *MemoryTokenStore) MarkUsed(_ context.Context, tokenID string, ttl time.Duration) error {
	s.cache.Set(tokenID, true, ttl)
	return nil
}

func (s *MemoryTokenStore) IsUsed(_ context.Context, tokenID string) (bool, error) {
	_, found := s.cache.Get(tokenID)
	return found, nil
}

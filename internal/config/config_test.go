package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("SIGNING_SECRET", "")
	t.Setenv("STRICT_INVARIANTS", "")
	t.Setenv("SERVER_ADDR", "")
	t.Setenv("CACHE_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Addr)
	require.True(t, cfg.StrictInvariants)
	require.Equal(t, []byte("dev-signing-secret"), cfg.SigningSecret)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SIGNING_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_ProductionIsLenientOnInvariants(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("SIGNING_SECRET", "s3cret")
	t.Setenv("STRICT_INVARIANTS", "")
	t.Setenv("PG_USER", "chamber")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_DB", "campaigns")
	t.Setenv("PG_HOST", "")
	t.Setenv("PG_PORT", "")
	t.Setenv("PG_SSLMODE", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.StrictInvariants)
	require.Equal(t, "postgres://chamber:pw@localhost:5432/campaigns?sslmode=disable", cfg.Postgres.DSN())
}

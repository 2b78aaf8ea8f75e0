package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
)

const secret = "0123456789abcdef0123456789abcdef"

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	for _, k := range []string{"JWT_SECRET", "PORT", "SMTP_HOST", "PLATFORM_EMAIL", "HOUSEKEEPING_INTERVAL", "PUBLIC_BASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg := LoadConfig()
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "docsend.db", cfg.DatabaseFile)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Equal(t, service.DefaultTokenRetention, cfg.TokenRetention)
	require.Equal(t, ratelimit.Rule{Limit: 60, Window: time.Hour}, cfg.RateLimits[service.ScopeSendIP])
	require.Equal(t, "http://localhost:8080/v1/sender-identities/verify", cfg.VerifyURL())
	require.Len(t, cfg.RateLimits, len(DefaultRateLimits))
}

func TestLoadConfig_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("HOUSEKEEPING_INTERVAL", "15")
	t.Setenv("PUBLIC_BASE_URL", "https://api.ledgerly.test/")
	t.Setenv("RATELIMIT_SEND_IP_REQUESTS", "5")
	t.Setenv("RATELIMIT_SEND_IP_WINDOW_SEC", "60")
	t.Setenv("RATELIMIT_SEND_USER_REQUESTS", "zero")

	cfg := LoadConfig()
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 15*time.Minute, cfg.HousekeepingInterval)
	require.Equal(t, "https://api.ledgerly.test/v1/sender-identities/verify", cfg.VerifyURL())
	require.Equal(t, ratelimit.Rule{Limit: 5, Window: time.Minute}, cfg.RateLimits[service.ScopeSendIP])
	require.Equal(t, DefaultRateLimits[service.ScopeSendUser], cfg.RateLimits[service.ScopeSendUser])
}

func TestLoadConfig_DotEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET="+secret+"\nPLATFORM_NAME=FromFile\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("PLATFORM_NAME", "FromEnv")
	// godotenv never overrides a variable that exists, even an empty one.
	require.NoError(t, os.Unsetenv("JWT_SECRET"))

	cfg := LoadConfig()
	require.Equal(t, secret, cfg.JWTSecret)
	require.Equal(t, "FromEnv", cfg.PlatformName)
}

func TestConfig_Validate(t *testing.T) {
	valid := func(t *testing.T) Config {
		isolate(t)
		cfg := LoadConfig()
		cfg.JWTSecret = secret
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid(t).Validate())
	})

	t.Run("short secret", func(t *testing.T) {
		cfg := valid(t)
		cfg.JWTSecret = "short"
		require.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
	})

	t.Run("smtp without sender address", func(t *testing.T) {
		cfg := valid(t)
		cfg.SMTP.Host = "smtp.example.test"
		require.ErrorContains(t, cfg.Validate(), "PLATFORM_EMAIL")
	})

	t.Run("bad rule", func(t *testing.T) {
		cfg := valid(t)
		cfg.RateLimits[service.ScopeSendIP] = ratelimit.Rule{Limit: 1, Window: time.Millisecond}
		require.ErrorContains(t, cfg.Validate(), service.ScopeSendIP)
	})
}

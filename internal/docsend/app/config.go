package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	httpapi "github.com/aussiebroadwan/docsend/internal/docsend/http"
	"github.com/aussiebroadwan/docsend/internal/docsend/mail"
	"github.com/aussiebroadwan/docsend/internal/docsend/service"
	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
)

// minSecretLen matches the HS256 key size the account service issues with.
const minSecretLen = 32

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	DatabaseFile         string        // Path to SQLite database file (default: docsend.db)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
	TokenRetention       time.Duration // How long expired verification tokens are kept (default: 90d)
	SendTimeout          time.Duration // Upper bound for one send pipeline run (default: 2m)

	JWTSecret   string // Required: HS256 secret shared with the account service
	JWTIssuer   string // Optional: expected iss claim
	JWTAudience string // Optional: expected aud claim

	RedisAddr     string        // Optional: shared rate-limit counters; in-process when empty
	RedisPassword string        // Optional
	RedisDB       int           // Optional (default: 0)
	RedisPrefix   string        // Key namespace (default: docsend:rl:)
	RedisTimeout  time.Duration // Per-call budget before falling back (default: 250ms)

	SMTP mail.SMTPConfig // Host empty disables mail (not_configured)

	RenderConcurrency int // Simultaneous PDF renders; 0 disables rendering (default: 4)

	PlatformName      string // Shown in From display names (default: docsend)
	PlatformEmail     string // Envelope sender for all outbound mail
	PublicBaseURL     string // Base URL the verification link points at
	VerifyRedirectURL string // UI page receiving ?verification=<outcome>

	RateLimits map[string]ratelimit.Rule
}

// DefaultRateLimits are the per-scope budgets before environment overrides.
var DefaultRateLimits = map[string]ratelimit.Rule{
	service.ScopeSendIP:     {Limit: 60, Window: time.Hour},
	service.ScopeSendUser:   {Limit: 100, Window: time.Hour},
	httpapi.ScopeAPIUser:    {Limit: 600, Window: time.Minute},
	httpapi.ScopePublicIP:   {Limit: 120, Window: time.Minute},
	httpapi.ScopeVerifyIP:   {Limit: 30, Window: time.Minute},
	httpapi.ScopeIdentityIP: {Limit: 20, Window: time.Hour},
}

// LoadConfig reads the environment, after merging a .env file when one
// exists. Variables already set win over the file.
func LoadConfig() Config {
	_ = godotenv.Load(getEnvOrDefault("ENV_FILE", ".env"))

	cfg := Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		DatabaseFile:         getEnvOrDefault("DOCSEND_DATABASE_FILE", "docsend.db"),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		TokenRetention:       getEnvDurationOrDefault("TOKEN_RETENTION", service.DefaultTokenRetention),
		SendTimeout:          getEnvDurationOrDefault("SEND_TIMEOUT", service.DefaultSendTimeout),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTAudience: os.Getenv("JWT_AUDIENCE"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),
		RedisPrefix:   getEnvOrDefault("REDIS_PREFIX", "docsend:rl:"),
		RedisTimeout:  getEnvDurationOrDefault("REDIS_TIMEOUT", 250*time.Millisecond),

		SMTP: mail.SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			Port:          getEnvIntOrDefault("SMTP_PORT", 587),
			Username:      os.Getenv("SMTP_USERNAME"),
			Password:      os.Getenv("SMTP_PASSWORD"),
			TLS:           getEnvOrDefault("SMTP_TLS", "mandatory"),
			Timeout:       getEnvDurationOrDefault("SMTP_TIMEOUT", 15*time.Second),
			RatePerSecond: getEnvFloatOrDefault("SMTP_RATE_PER_SEC", 5),
			Burst:         getEnvIntOrDefault("SMTP_BURST", 10),
		},

		RenderConcurrency: getEnvIntOrDefault("RENDER_CONCURRENCY", 4),

		PlatformName:      getEnvOrDefault("PLATFORM_NAME", "docsend"),
		PlatformEmail:     os.Getenv("PLATFORM_EMAIL"),
		PublicBaseURL:     strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		VerifyRedirectURL: getEnvOrDefault("VERIFY_REDIRECT_URL", "/"),

		RateLimits: make(map[string]ratelimit.Rule, len(DefaultRateLimits)),
	}

	for scope, def := range DefaultRateLimits {
		cfg.RateLimits[scope] = ratelimit.RuleFromEnv(scope, def)
	}

	return cfg
}

// Validate reports settings the process cannot start without. Mail and
// rendering are optional: requests needing them fail with not_configured.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < minSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLen))
	}
	if c.SMTP.Host != "" && c.PlatformEmail == "" {
		errs = append(errs, errors.New("PLATFORM_EMAIL is required when SMTP_HOST is set"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	for scope, r := range c.RateLimits {
		if !r.Valid() {
			errs = append(errs, fmt.Errorf("rate limit for %s is invalid", scope))
		}
	}
	return errors.Join(errs...)
}

// VerifyURL is the public endpoint mailed verification links point at.
func (c Config) VerifyURL() string {
	return c.PublicBaseURL + "/v1/sender-identities/verify"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

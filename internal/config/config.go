package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. Built once at startup and passed
// through fx; there is no ambient global state.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	ListenAddr  string
	FrontendURL string

	GoogleClientID string

	SessionMaxAge time.Duration
	SweepInterval time.Duration

	CookieName     string
	CookieDomain   string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite string

	CSRFStrict bool

	JWTSecret   string
	AppTokenTTL time.Duration

	AppCatalogFile string

	RateLimitEnabled bool
	RateLimitMax     int
	RateLimitWindow  time.Duration

	AdminEmails    []string
	AllowedDomains []string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisURL         string
	UseRedisSessions bool
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	cookieSecure := environment == "production"
	if !cookieSecure {
		cookieSecure = getenvBool("COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "portal"),
		AppVersion:  getenv("APP_VERSION", "1.0.0"),
		Environment: environment,
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		FrontendURL: strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:6001"), "/"),

		GoogleClientID: strings.TrimSpace(getenv("GOOGLE_CLIENT_ID", "")),

		SessionMaxAge: getenvDuration("SESSION_MAX_AGE", 30*24*time.Hour),
		SweepInterval: getenvDuration("SESSION_SWEEP_INTERVAL", time.Hour),

		CookieName:     getenv("COOKIE_NAME", "portal_session"),
		CookieDomain:   strings.TrimSpace(getenv("COOKIE_DOMAIN", "")),
		CookieSecure:   cookieSecure,
		CookieHTTPOnly: getenvBool("COOKIE_HTTPONLY", true),
		CookieSameSite: strings.ToLower(getenv("COOKIE_SAMESITE", "lax")),

		CSRFStrict: getenvBool("CSRF_STRICT", false),

		JWTSecret:   strings.TrimSpace(getenv("JWT_SECRET", "")),
		AppTokenTTL: getenvDuration("APP_TOKEN_TTL", time.Hour),

		AppCatalogFile: strings.TrimSpace(getenv("APP_CATALOG_FILE", "")),

		RateLimitEnabled: getenvBool("RATE_LIMIT_ENABLED", true),
		RateLimitMax:     getenvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:  getenvDuration("RATE_LIMIT_WINDOW", time.Minute),

		AdminEmails:    splitList(getenv("ADMIN_EMAILS", "")),
		AllowedDomains: splitList(getenv("ALLOWED_DOMAINS", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "portal"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisURL:         strings.TrimSpace(getenv("REDIS_URL", "")),
		UseRedisSessions: getenvBool("USE_REDIS_SESSIONS", false),
	}

	return cfg
}

// IsAdminEmail reports whether email is in the configured admin list.
func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if strings.ToLower(admin) == email {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// getenvDuration accepts either a Go duration string or a number of seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return def
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

type Config struct {
	Env        string
	ListenAddr string
	LogLevel   string
	Backend    string

	Supabase SupabaseConfig
	Postgres PostgresConfig
	Auth     AuthConfig
	Redis    RedisConfig

	BadgeRulesFile string
	BackendTimeout time.Duration
	SweepInterval  time.Duration
	CookieSecure   bool
}

type SupabaseConfig struct {
	URL     string
	AnonKey string
	Table   string
}

type PostgresConfig struct {
	DatabaseURL string
	Migrate     bool
	MaxConns    int
}

// AuthConfig configures the self-hosted auth provider used with the postgres backend.
type AuthConfig struct {
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	SessionTTL        time.Duration
}

// RedisConfig enables cross-instance session events when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}

// Load reads configuration from the environment, after loading a .env file if
// one exists. The returned Config is always populated; the error reports
// settings the selected backend cannot run without so callers can decide.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:        getenv("APP_ENV", "development"),
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		Backend:    strings.ToLower(getenv("BACKEND", BackendSupabase)),
		Supabase: SupabaseConfig{
			URL:     strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
			AnonKey: os.Getenv("SUPABASE_ANON_KEY"),
			Table:   getenv("SUPABASE_TABLE", "certificates"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Migrate:     getenvBool("MIGRATE", false),
			MaxConns:    getenvInt("DB_MAX_CONNS", 10),
		},
		Auth: AuthConfig{
			AdminEmail:        os.Getenv("ADMIN_EMAIL"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSecret:         os.Getenv("JWT_SECRET"),
			SessionTTL:        getenvDuration("SESSION_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASS"),
			DB:       getenvInt("REDIS_DB", 0),
			Channel:  getenv("REDIS_CHANNEL", "certportal:sessions"),
		},
		BadgeRulesFile: os.Getenv("BADGE_RULES_FILE"),
		BackendTimeout: getenvDuration("BACKEND_TIMEOUT", 10*time.Second),
		SweepInterval:  getenvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		CookieSecure:   getenvBool("COOKIE_SECURE", false),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first missing setting for the selected backend.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" {
			return fmt.Errorf("SUPABASE_URL not set")
		}
		if c.Supabase.AnonKey == "" {
			return fmt.Errorf("SUPABASE_ANON_KEY not set")
		}
	case BackendPostgres:
		if c.Postgres.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL not set")
		}
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET not set")
		}
		if c.Auth.AdminEmail == "" || c.Auth.AdminPasswordHash == "" {
			return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set")
		}
	default:
		return fmt.Errorf("unknown BACKEND %q", c.Backend)
	}
	return nil
}

func (c Config) IsDevelopment() bool { return c.Env == "development" }

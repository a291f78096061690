package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "companyapp/pkg/platform/strings"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Database Database
	Redis    RedisConfig
	Audit    Audit
	Log      Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	AdminToken      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Database selects the SQL backend.
type Database struct {
	Driver     string
	DSN        string
	SQLitePath string
	MaxOpen    int
}

// RedisConfig configures the optional Redis connection. An empty URL
// disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Audit tunes the audit pipeline.
type Audit struct {
	Mirror       bool
	MirrorBuffer int
	QueryLimit   int
	Redact       []string
}

type Log struct {
	Level  string
	Format string
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: getenv("COMPANYAPP_ADDR", ":8080"),
			// Use a default for development - should be overridden in production
			JWTSigningKey:   getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       getenv("JWT_ISSUER", "companyapp"),
			JWTAudience:     getenv("JWT_AUDIENCE", "companyapp"),
			AdminToken:      os.Getenv("ADMIN_TOKEN"),
			ReadTimeout:     getenvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getenvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getenvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: Database{
			Driver:     getenv("DB_DRIVER", "sqlite"),
			DSN:        os.Getenv("DB_DSN"),
			SQLitePath: getenv("SQLITE_PATH", "data/company.db"),
			MaxOpen:    getenvInt("DB_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Audit: Audit{
			Mirror:       getenvBool("AUDIT_MIRROR", false),
			MirrorBuffer: getenvInt("AUDIT_MIRROR_BUFFER", 256),
			QueryLimit:   getenvInt("AUDIT_QUERY_LIMIT", 50),
			Redact:       platformstrings.SplitList(os.Getenv("AUDIT_REDACT")),
		},
		Log: Log{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

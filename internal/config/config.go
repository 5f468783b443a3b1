package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minRequestTimeout = 10 * time.Second
	maxRequestTimeout = 20 * time.Second
)

type Config struct {
	API      APIConfig
	Firebase FirebaseConfig
	Identity IdentityConfig
	Server   ServerConfig
	Images   ImageConfig
	Log      LogConfig

	// AppURL is the base URL of our own web server. Empty disables the
	// session cookie side channel.
	AppURL         string
	SessionFile    string
	DevBackendPort string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type FirebaseConfig struct {
	APIKey              string
	AuthDomain          string
	ProjectID           string
	StorageBucket       string
	MessagingSenderID   string
	AppID               string
	AuthEmulatorHost    string
	StorageEmulatorHost string
}

type IdentityConfig struct {
	Mode      string // firebase | local
	JWTSecret string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Production   bool
	CookieMaxAge time.Duration
	// RateLimit is requests per second per client IP on the cookie endpoint.
	RateLimit int
}

type ImageConfig struct {
	Hosts []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8081"), "/"),
			Timeout: clampTimeout(getEnvDuration("API_TIMEOUT", minRequestTimeout)),
		},
		Firebase: FirebaseConfig{
			APIKey:              getEnv("FIREBASE_API_KEY", ""),
			AuthDomain:          getEnv("FIREBASE_AUTH_DOMAIN", ""),
			ProjectID:           getEnv("FIREBASE_PROJECT_ID", ""),
			StorageBucket:       getEnv("FIREBASE_STORAGE_BUCKET", ""),
			MessagingSenderID:   getEnv("FIREBASE_MESSAGING_SENDER_ID", ""),
			AppID:               getEnv("FIREBASE_APP_ID", ""),
			AuthEmulatorHost:    getEnv("FIREBASE_AUTH_EMULATOR_HOST", ""),
			StorageEmulatorHost: getEnv("FIREBASE_STORAGE_EMULATOR_HOST", ""),
		},
		Identity: IdentityConfig{
			Mode:      strings.ToLower(getEnv("IDENTITY_MODE", "firebase")),
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "3000"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			Production:   getEnv("APP_ENV", "development") == "production",
			CookieMaxAge: getEnvDuration("SESSION_COOKIE_MAX_AGE", time.Hour),
			RateLimit:    getEnvInt("RATE_LIMIT", 20),
		},
		Images: ImageConfig{
			Hosts: getEnvList("IMAGE_HOSTS"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		AppURL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),
		SessionFile:    getEnv("SESSION_FILE", defaultSessionFile()),
		DevBackendPort: getEnv("DEV_BACKEND_PORT", "8081"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Identity.Mode {
	case "firebase":
	case "local":
		if c.Identity.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required when IDENTITY_MODE=local")
		}
	default:
		return fmt.Errorf("config: unknown IDENTITY_MODE %q", c.Identity.Mode)
	}
	return nil
}

// NewLogger builds the process root logger.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func clampTimeout(d time.Duration) time.Duration {
	if d < minRequestTimeout {
		return minRequestTimeout
	}
	if d > maxRequestTimeout {
		return maxRequestTimeout
	}
	return d
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".bazaar-session.json"
	}
	return filepath.Join(dir, "bazaar", "session.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Bare integers are read as seconds.
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		slog.Warn("invalid duration, using default", "key", key, "value", value)
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Config is the application configuration.
type Config struct {
	Environment string
	Port        string

	// Database
	PostgresDSN string
	UseMemoryDB bool

	// JWT
	JWTSecret string

	// AI provider (OpenAI-compatible chat completions)
	AIBaseURL string
	AIAPIKey  string
	AIModel   string

	// Object storage
	StorageURL    string
	StorageKey    string
	StorageBucket string

	// Outbound email provider
	EmailAPIURL string
	EmailAPIKey string
	EmailFrom   string

	// Google Calendar OAuth
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURI   string

	// CORS
	AllowedOrigins []string

	Debug bool
}

// LoadConfig loads env files for the current environment, then the process
// environment on top.
func LoadConfig() *Config {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	switch env {
	case "production":
		_ = godotenv.Load(".env.production")
	default:
		_ = godotenv.Load(".env.local")
	}

	cfg := &Config{
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		Port:        getEnvWithDefault("PORT", "3000"),
		UseMemoryDB: getEnvBool("USE_MEMORY_DB", false),
		JWTSecret:   getEnvWithDefault("JWT_SECRET", "your-secret-key-change-in-production"),
		Debug:       getEnvBool("DEBUG", false),
	}

	// Trim whitespace to avoid stray CR/LF from env sources
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("POSTGRES_DSN"))

	cfg.AIBaseURL = getEnvWithDefault("AI_BASE_URL", "https://api.openai.com/v1")
	cfg.AIAPIKey = strings.TrimSpace(os.Getenv("AI_API_KEY"))
	cfg.AIModel = getEnvWithDefault("AI_MODEL", "gpt-4o-mini")

	cfg.StorageURL = strings.TrimSpace(os.Getenv("STORAGE_URL"))
	cfg.StorageKey = strings.TrimSpace(os.Getenv("STORAGE_SERVICE_KEY"))
	cfg.StorageBucket = getEnvWithDefault("STORAGE_BUCKET", "tarely")

	cfg.EmailAPIURL = strings.TrimSpace(os.Getenv("EMAIL_API_URL"))
	cfg.EmailAPIKey = strings.TrimSpace(os.Getenv("EMAIL_API_KEY"))
	cfg.EmailFrom = getEnvWithDefault("EMAIL_FROM", "Tarely <no-reply@tarely.app>")

	cfg.GoogleClientID = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID"))
	cfg.GoogleClientSecret = strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_SECRET"))
	cfg.OAuthRedirectURI = strings.TrimSpace(os.Getenv("OAUTH_REDIRECT_URI"))

	allowedOrigins := getEnvWithDefault("ALLOWED_ORIGINS", "*")
	if allowedOrigins == "*" {
		cfg.AllowedOrigins = []string{"*"}
	} else {
		cfg.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	if cfg.Environment == "production" {
		cfg.UseMemoryDB = false
		cfg.Debug = false
	}

	return cfg
}

var (
	cached     *Config
	cachedOnce sync.Once
)

// GetCached returns the process-wide configuration, loading it on first use.
func GetCached() *Config {
	cachedOnce.Do(func() {
		cached = LoadConfig()
	})
	return cached
}

// Validate checks required settings; production refuses to start without an
// external database and a real JWT secret.
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required in production")
		}
		if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

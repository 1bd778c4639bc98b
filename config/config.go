package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DevSessionSecret is the signing key used outside production when none is set.
const DevSessionSecret = "dev"

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort         string
	ServerHost         string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
	RateLimitPerHour   int

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Signs the chat session cookie
	SessionSecret string

	// Gemini configuration
	GeminiAPIKey      string
	GeminiAPIURL      string
	GeminiModel       string
	GeminiVisionModel string

	// Upload storage
	StorageBackend        string
	UploadFolder          string
	S3BucketName          string
	AWSRegion             string
	AzureStorageAccount   string
	AzureStorageKey       string
	AzureStorageContainer string

	// Detector
	SampleTableDir   string
	BlendProbability float64

	LogLevel string
}

// source resolves one configuration key.
type source func(envKey, secretName string) string

// LoadConfig creates a new Config instance with values from environment variables or secrets
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	var lookup source
	switch env {
	case CI:
		lookup = envOnly
	case Development, Test:
		lookup = envThenSecret
	case Production:
		lookup = secretThenEnv
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	cfg, err := build(env, lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s configuration: %w", env, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func build(env Environment, lookup source) (*Config, error) {
	get := func(key, def string) string {
		if v := lookup(key, strings.ToLower(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Environment:           env,
		ServerHost:            get("SERVER_HOST", "0.0.0.0"),
		ServerPort:            get("SERVER_PORT", "5000"),
		DatabaseURL:           get("DATABASE_URL", "sqlite://plant_disease.db"),
		RedisURL:              get("REDIS_URL", ""),
		RedisHost:             get("REDIS_HOST", ""),
		RedisPort:             get("REDIS_PORT", "6379"),
		RedisPassword:         get("REDIS_PASSWORD", ""),
		SessionSecret:         get("SESSION_SECRET", ""),
		GeminiAPIKey:          get("GEMINI_API_KEY", ""),
		GeminiAPIURL:          get("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:           get("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiVisionModel:     get("GEMINI_VISION_MODEL", "gemini-1.5-flash"),
		StorageBackend:        get("STORAGE_BACKEND", "local"),
		UploadFolder:          get("UPLOAD_FOLDER", filepath.Join("static", "uploads")),
		S3BucketName:          get("S3_BUCKET_NAME", "leafscan-uploads"),
		AWSRegion:             get("AWS_REGION", ""),
		AzureStorageAccount:   get("AZURE_STORAGE_ACCOUNT", ""),
		AzureStorageKey:       get("AZURE_STORAGE_KEY", ""),
		AzureStorageContainer: get("AZURE_STORAGE_CONTAINER", "uploads"),
		SampleTableDir:        get("SAMPLE_TABLE_DIR", "."),
		LogLevel:              get("LOG_LEVEL", "info"),
	}

	if cfg.GeminiAPIKey == "" {
		if path := os.Getenv("GEMINI_API_KEY_FILE"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read GEMINI_API_KEY_FILE: %w", err)
			}
			cfg.GeminiAPIKey = strings.TrimSpace(string(data))
		}
	}

	if password := get("DB_PASSWORD", ""); password != "" {
		dsn, err := withPassword(cfg.DatabaseURL, password)
		if err != nil {
			return nil, fmt.Errorf("DATABASE_URL: %w", err)
		}
		cfg.DatabaseURL = dsn
	}

	if cfg.SessionSecret == "" && env != Production {
		cfg.SessionSecret = DevSessionSecret
	}

	if origins := get("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}

	var err error
	if cfg.RedisDB, err = atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.RateLimitPerHour, err = atoi(get("RATE_LIMIT_PER_HOUR", "100")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_PER_HOUR: %w", err)
	}
	if cfg.MaxUploadBytes, err = strconv.ParseInt(get("MAX_UPLOAD_BYTES", "16777216"), 10, 64); err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.BlendProbability, err = strconv.ParseFloat(get("BLEND_PROBABILITY", "0.3"), 64); err != nil {
		return nil, fmt.Errorf("BLEND_PROBABILITY: %w", err)
	}

	return cfg, nil
}

// withPassword sets the password of a postgres URL that carries none.
func withPassword(raw, password string) (string, error) {
	if !strings.HasPrefix(raw, "postgres://") && !strings.HasPrefix(raw, "postgresql://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.User == nil {
		return raw, nil
	}
	if _, set := u.User.Password(); set {
		return raw, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}

// RedisAddr returns host:port, or "" when Redis is configured by URL or not at all.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

// RedisEnabled reports whether any Redis location is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

// envOnly is used in CI, where GitHub Actions injects every value as a variable.
func envOnly(envKey, _ string) string {
	return os.Getenv(envKey)
}

func envThenSecret(envKey, secretName string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return readSecret(secretName)
}

// secretThenEnv prefers Docker secrets in production.
func secretThenEnv(envKey, secretName string) string {
	if v := readSecret(secretName); v != "" {
		return v
	}
	return os.Getenv(envKey)
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}

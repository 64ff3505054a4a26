// Package config loads process-wide configuration from the environment,
// following the same load-validate-return shape as the upstream
// config.Initialize entrypoint this project was adapted from, but reading
// flat environment variables instead of a YAML overlay: this system's
// configuration surface (spec.md §6) is entirely env-var driven.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the umbrella object returned by Initialize and threaded through
// the application instead of relying on package-level globals.
type Config struct {
	MongoURI string
	EnvName  string // database name, from ENV

	NextAuthURL    string
	NextAuthSecret string // HMAC + crypto secret

	AdminEmail    string
	AdminPassword string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSS3Bucket        string

	ProviderAPIKeys map[string]string // e.g. "openai" -> OPENAI_API_KEY value

	NWorkers int
	LogLevel string

	HTTPPort string

	ConverterLockPath string

	Retention RetentionConfig
}

// RetentionConfig governs pkg/cleanup's periodic sweep of terminal work
// queue messages (spec.md §4.C: completed/failed messages are retained for
// diagnostics, not erased on completion — retention bounds how long).
type RetentionConfig struct {
	QueueMessageRetention time.Duration
	CleanupInterval       time.Duration
}

// Initialize loads and validates configuration from the environment.
func Initialize() (*Config, error) {
	cfg := &Config{
		MongoURI:       getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		EnvName:        getEnv("ENV", "dev"),
		NextAuthURL:    os.Getenv("NEXTAUTH_URL"),
		NextAuthSecret: os.Getenv("NEXTAUTH_SECRET"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),

		AWSAccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        os.Getenv("AWS_S3_BUCKET_NAME"),

		ProviderAPIKeys: loadProviderAPIKeys(),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort: getEnv("HTTP_PORT", "8080"),

		ConverterLockPath: getEnv("CONVERTER_LOCK_PATH", "/tmp/docrouter-converter.lock"),
	}

	nWorkers, err := strconv.Atoi(getEnv("N_WORKERS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid N_WORKERS: %w", err)
	}
	cfg.NWorkers = nWorkers

	queueRetention, err := time.ParseDuration(getEnv("QUEUE_MESSAGE_RETENTION", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_MESSAGE_RETENTION: %w", err)
	}
	cleanupInterval, err := time.ParseDuration(getEnv("CLEANUP_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLEANUP_INTERVAL: %w", err)
	}
	cfg.Retention = RetentionConfig{
		QueueMessageRetention: queueRetention,
		CleanupInterval:       cleanupInterval,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields are present.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.NextAuthSecret == "" {
		return fmt.Errorf("NEXTAUTH_SECRET is required")
	}
	if c.NWorkers < 1 {
		return fmt.Errorf("N_WORKERS must be at least 1")
	}
	return nil
}

// knownProviders is the canonical seed list for the LLM provider registry
// (spec.md §4.E "seed from a known provider list").
var knownProviders = []string{
	"openai", "anthropic", "gemini", "bedrock", "vertex", "groq", "mistral", "openrouter",
}

func loadProviderAPIKeys() map[string]string {
	keys := make(map[string]string, len(knownProviders))
	for _, p := range knownProviders {
		envVar := fmt.Sprintf("%s_API_KEY", upper(p))
		if v := os.Getenv(envVar); v != "" {
			keys[p] = v
		}
	}
	return keys
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// Package config loads the hot tub controller's process-wide configuration
// from the environment, in the style of the teacher's shared/config and
// its weather-scheduler cmd's loadConfig/validateConfig pair.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ExternalAPIMode selects whether outbound collaborators (webhook gateway,
// sensor cloud) are hit for real or stubbed out for development.
type ExternalAPIMode string

const (
	ModeLive ExternalAPIMode = "live"
	ModeStub ExternalAPIMode = "stub"
)

// Config is the explicit, threaded-through-constructors configuration
// record spec.md §1 calls for in place of global mutable state.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	StorageDir string // root of storage/ per spec.md §6

	ExternalAPIMode ExternalAPIMode

	WebhookBaseURL string
	WebhookKey     string

	SensorOAuthToken string
	SensorDeviceID   string
	SensorBaseURL    string

	RunnerBearerToken string
	APIBaseURL        string
	RunnerPath        string // path to the cron-runner executable

	ESP32APIKey string

	RedisAddr     string
	RedisPassword string

	FirebaseCredentialsPath string
	FCMDeviceToken          string
	NotifierMode            ExternalAPIMode

	JWTSecret string

	HeatingRateFPerMin float64

	CronSentinelPath string // advisory-lock sentinel for the host crontab

	ProtectedSecretsPath string // narrower-permission file read by LoadProtectedSecrets
}

// Load reads .env (if present) then environment variables with sane
// development defaults, mirroring the teacher's config.Load.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StorageDir: getEnv("STORAGE_DIR", "./storage"),

		ExternalAPIMode: ExternalAPIMode(getEnv("EXTERNAL_API_MODE", "stub")),

		WebhookBaseURL: getEnv("WEBHOOK_BASE_URL", ""),
		WebhookKey:     getEnv("WEBHOOK_KEY", ""),

		SensorOAuthToken: getEnv("SENSOR_OAUTH_TOKEN", ""),
		SensorDeviceID:   getEnv("SENSOR_DEVICE_ID", ""),
		SensorBaseURL:    getEnv("SENSOR_BASE_URL", ""),

		RunnerBearerToken: getEnv("RUNNER_BEARER_TOKEN", ""),
		APIBaseURL:        getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		RunnerPath:        getEnv("RUNNER_PATH", "./storage/bin/cron-runner"),

		ESP32APIKey: getEnv("ESP32_API_KEY", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		FirebaseCredentialsPath: getEnv("FCM_CREDENTIALS_PATH", ""),
		FCMDeviceToken:          getEnv("FCM_DEVICE_TOKEN", ""),
		NotifierMode:            ExternalAPIMode(getEnv("NOTIFIER_MODE", "stub")),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret"),

		HeatingRateFPerMin: getEnvFloat("HEATING_RATE_F_PER_MIN", 0.5),

		CronSentinelPath: getEnv("CRON_SENTINEL_PATH", "./storage/crontab-backups/.lock"),

		ProtectedSecretsPath: getEnv("PROTECTED_SECRETS_PATH", "./storage/protected-secrets.yaml"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate enforces the fields that must be present for the process to run
// at all, mirroring the teacher's validateConfig — failures here are fatal
// at startup, not surfaced per-request.
func validate(cfg *Config) error {
	if cfg.ExternalAPIMode != ModeLive && cfg.ExternalAPIMode != ModeStub {
		return fmt.Errorf("EXTERNAL_API_MODE must be %q or %q, got %q", ModeLive, ModeStub, cfg.ExternalAPIMode)
	}
	if cfg.ExternalAPIMode == ModeLive && cfg.WebhookBaseURL == "" {
		return fmt.Errorf("WEBHOOK_BASE_URL is required when EXTERNAL_API_MODE=live")
	}
	if cfg.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR is required")
	}
	if cfg.HeatingRateFPerMin <= 0 {
		return fmt.Errorf("HEATING_RATE_F_PER_MIN must be positive, got %v", cfg.HeatingRateFPerMin)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// WebhookTimeout, SensorRefreshTimeout and LoopbackTimeout are the bounded
// timeouts spec.md §5 mandates for each blocking collaborator.
const (
	WebhookTimeout       = 30 * time.Second
	SensorRefreshTimeout = 15 * time.Second
	LoopbackTimeout      = 30 * time.Second
)

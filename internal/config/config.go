package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultSecretKey = "change_me_in_production"

// Config holds application configuration read from the environment.
type Config struct {
	Port           string
	DBPath         string
	SecretKey      string
	Timezone       string
	LogLevel       string
	LogFormat      string
	CookieSecure   bool
	GuidelinesPath string

	RedisAddr    string
	ExamCacheTTL time.Duration

	ViaCEPURL string
	ViaCEPRPS float64

	ReminderSchedule string
	ReminderEnabled  bool
	SMTPHost         string
	SMTPPort         string
	SMTPUser         string
	SMTPPassword     string
	SMTPFrom         string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "data/bemcuidar.db"),
		SecretKey:        getEnv("SECRET_KEY", defaultSecretKey),
		Timezone:         getEnv("TZ", "America/Sao_Paulo"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "json")),
		GuidelinesPath:   getEnv("GUIDELINES_PATH", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		ViaCEPURL:        strings.TrimRight(getEnv("VIACEP_URL", "https://viacep.com.br/ws"), "/"),
		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 8 * * *"),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getEnv("SMTP_PORT", "587"),
		SMTPUser:         getEnv("SMTP_USER", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:         getEnv("SMTP_FROM", ""),
	}

	var err error
	if cfg.CookieSecure, err = getBoolEnv("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.ReminderEnabled, err = getBoolEnv("REMINDER_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.ExamCacheTTL, err = getDurationEnv("EXAM_CACHE_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ViaCEPRPS, err = getFloatEnv("VIACEP_RPS", 5); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	if cfg.ViaCEPRPS <= 0 {
		return nil, fmt.Errorf("VIACEP_RPS must be positive")
	}

	return cfg, nil
}

// UsesDefaultSecret reports whether SECRET_KEY was left at its development value.
func (cfg *Config) UsesDefaultSecret() bool {
	return cfg.SecretKey == defaultSecretKey
}

// RemindersConfigured reports whether reminder e-mails can be sent.
func (cfg *Config) RemindersConfigured() bool {
	return cfg.ReminderEnabled && cfg.SMTPHost != "" && cfg.SMTPFrom != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return value, nil
}

func getDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return value, nil
}

func getFloatEnv(key string, defaultVal float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return value, nil
}

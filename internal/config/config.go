package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Telegram
	TelegramBotToken string

	// Language model
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	AgentMaxTurns int

	// Database
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Ops HTTP server, empty disables it
	HTTPPort string

	// Transport limits
	MaxConcurrentMessages int
	MessagesPerMinute     int
	UserCacheTTL          time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	worker bool
	chat   bool
}

var (
	validBackends   = []string{"sqlite", "postgres"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

// Load reads the bot configuration from the environment.
func Load() *Config {
	return &Config{
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		AgentMaxTurns: getEnvInt("AGENT_MAX_TURNS", 10),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hisaab.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hisaab"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Expenses"),

		HTTPPort: getEnv("HTTP_PORT", ""),

		MaxConcurrentMessages: getEnvInt("MAX_CONCURRENT_MESSAGES", 16),
		MessagesPerMinute:     getEnvInt("MESSAGES_PER_MINUTE", 20),
		UserCacheTTL:          getEnvDuration("USER_CACHE_TTL", 10*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// LoadWorker reads the sync worker configuration. Bot secrets are not
// required; AMQP and the spreadsheet are.
func LoadWorker() *Config {
	cfg := Load()
	cfg.worker = true
	return cfg
}

// LoadChat reads the configuration for the console runner, which talks to
// the agent directly and needs no Telegram token.
func LoadChat() *Config {
	cfg := Load()
	cfg.chat = true
	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.worker {
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required for the sync worker")
		}
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the sync worker")
		}
	} else {
		if c.TelegramBotToken == "" && !c.chat {
			errors = append(errors, "TELEGRAM_BOT_TOKEN is required")
		}
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "OPENAI_API_KEY is required")
		}
		if c.OpenAIModel == "" {
			errors = append(errors, "OPENAI_MODEL cannot be empty")
		}
		if c.AgentMaxTurns < 1 || c.AgentMaxTurns > 50 {
			errors = append(errors, fmt.Sprintf("invalid agent max turns %d: must be between 1 and 50", c.AgentMaxTurns))
		}
		if c.OpenAIBaseURL != "" {
			if u, err := url.Parse(c.OpenAIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s': must be http or https", c.OpenAIBaseURL))
			}
		}

		if !slices.Contains(validBackends, c.DataBackend) {
			errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
		}
		if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
		if c.DataBackend == "postgres" {
			if c.DatabaseURL == "" {
				errors = append(errors, "DATABASE_URL is required when using postgres backend")
			} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
				errors = append(errors, "invalid DATABASE_URL: scheme must be 'postgres' or 'postgresql'")
			}
		}

		if c.MaxConcurrentMessages < 1 {
			errors = append(errors, fmt.Sprintf("invalid max concurrent messages %d: must be at least 1", c.MaxConcurrentMessages))
		}
		if c.MessagesPerMinute < 0 {
			errors = append(errors, fmt.Sprintf("invalid messages per minute %d: must not be negative", c.MessagesPerMinute))
		}
		if c.UserCacheTTL < 0 {
			errors = append(errors, fmt.Sprintf("invalid user cache TTL %v: must not be negative", c.UserCacheTTL))
		}

		if c.HTTPPort != "" {
			if port, err := strconv.Atoi(c.HTTPPort); err != nil {
				errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.HTTPPort))
			} else if port < 1 || port > 65535 {
				errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// SlogLevel maps LogLevel onto slog, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

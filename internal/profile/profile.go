// Package profile holds runtime configuration for the learnmate services.
package profile

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Profile is configuration shared by the bot and the two auxiliary services.
// Hand-tuned values (thresholds, expiry windows, history cap) are settings
// with defaults, not hard-coded invariants.
type Profile struct {
	Mode    string // "prod" or "dev"
	Version string

	// Telegram bot
	TelegramBotToken string
	MetricsAddr      string

	// Collaborator endpoints
	AuthServiceURL     string
	KnowledgeBaseURL   string
	AuthTimeoutSeconds int
	KnowledgeTimeout   int

	// External model
	ModelAPIKey         string
	ModelName           string
	ModelMaxTokens      int
	ModelTimeoutSeconds int

	// Dialog tuning
	ContextExpirySeconds int
	KnowledgeThreshold   float64
	HistoryLimit         int

	// Auth service
	AuthAddr           string
	GoogleClientID     string
	GoogleClientSecret string
	AuthRedirectURL    string
	AllowedEmailDomain string
	AuthDSN            string

	// Knowledge-base service
	KnowledgeAddr      string
	KnowledgeDataDir   string
	KnowledgeRelevance float64
	KnowledgeRateLimit float64
}

// IsDev reports whether the instance runs in development mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsModelEnabled reports whether external model escalation is configured.
func (p *Profile) IsModelEnabled() bool {
	return p.ModelAPIKey != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.TelegramBotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", "")
	p.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9090")

	p.AuthServiceURL = getEnvOrDefault("AUTH_SERVICE_URL", "http://localhost:5050")
	p.KnowledgeBaseURL = getEnvOrDefault("KNOWLEDGE_BASE_URL", "http://localhost:5000")
	p.AuthTimeoutSeconds = getEnvOrDefaultInt("AUTH_TIMEOUT_SECONDS", 3)
	p.KnowledgeTimeout = getEnvOrDefaultInt("KNOWLEDGE_TIMEOUT_SECONDS", 5)

	p.ModelAPIKey = getEnvOrDefault("ANTHROPIC_API_KEY", "")
	p.ModelName = getEnvOrDefault("MODEL_NAME", "claude-3-opus-20240229")
	p.ModelMaxTokens = getEnvOrDefaultInt("MODEL_MAX_TOKENS", 1000)
	p.ModelTimeoutSeconds = getEnvOrDefaultInt("MODEL_TIMEOUT_SECONDS", 30)

	p.ContextExpirySeconds = getEnvOrDefaultInt("CONTEXT_EXPIRY_SECONDS", 600)
	p.KnowledgeThreshold = getEnvOrDefaultFloat("KNOWLEDGE_SCORE_THRESHOLD", 65)
	p.HistoryLimit = getEnvOrDefaultInt("MODEL_HISTORY_LIMIT", 10)

	p.AuthAddr = getEnvOrDefault("AUTH_ADDR", ":5050")
	p.GoogleClientID = getEnvOrDefault("GOOGLE_CLIENT_ID", "")
	p.GoogleClientSecret = getEnvOrDefault("GOOGLE_CLIENT_SECRET", "")
	p.AuthRedirectURL = getEnvOrDefault("AUTH_REDIRECT_URL", "http://localhost:5050/callback")
	p.AllowedEmailDomain = getEnvOrDefault("ALLOWED_EMAIL_DOMAIN", "smu.edu.sg")
	p.AuthDSN = getEnvOrDefault("AUTH_DSN", "learnmate_auth.db")

	p.KnowledgeAddr = getEnvOrDefault("KNOWLEDGE_ADDR", ":5000")
	p.KnowledgeDataDir = getEnvOrDefault("KNOWLEDGE_DATA_DIR", "data")
	p.KnowledgeRelevance = getEnvOrDefaultFloat("KNOWLEDGE_RELEVANCE_THRESHOLD", 60)
	p.KnowledgeRateLimit = getEnvOrDefaultFloat("KNOWLEDGE_RATE_LIMIT", 10)
}

// ValidateBot checks the fields the bot process cannot run without.
func (p *Profile) ValidateBot() error {
	if p.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// ValidateAuthService checks the fields the auth service cannot run without.
func (p *Profile) ValidateAuthService() error {
	if p.GoogleClientID == "" || p.GoogleClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}
	return nil
}

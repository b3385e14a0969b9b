package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is the process configuration read from the environment.
type Settings struct {
	Port        string
	DBURL       string
	DBLogLevel  string
	AutoMigrate bool
	JWTSecret   string
	AdminSecret string
	CORSOrigins string

	LLMProvider   string
	LLMModel      string
	GeminiAPIKey  string
	OpenAIAPIKey  string
	GroqAPIKey    string
	GroqBaseURL   string
	GCPProjectID  string
	GCPLocation   string
	GCPCredential string

	GenerationTimeout time.Duration
	ClassifyTimeout   time.Duration

	NetlifyToken    string
	NetlifyAPIURL   string
	DeployPollDelay time.Duration
	SnapshotBucket  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("LLM_PROVIDER", "gemini")
	v.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	v.SetDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1")
	v.SetDefault("GOOGLE_CLOUD_VERTEXAI_LOCATION", "us-east5")
	v.SetDefault("GENERATION_TIMEOUT", "30s")
	v.SetDefault("CLASSIFY_TIMEOUT", "10s")
	v.SetDefault("NETLIFY_API_URL", "https://api.netlify.com/api/v1")
	v.SetDefault("DEPLOY_POLL_DELAY", "3s")
}

// envKeys lists every variable read, so AutomaticEnv also sees keys without defaults.
var envKeys = []string{
	"DB_URL", "JWT_SECRET", "ADMIN_SECRET",
	"GEMINI_API_KEY", "OPENAI_API_KEY", "GROQ_API_KEY",
	"GOOGLE_CLOUD_PROJECT_ID", "GCP_SERVICE_ACCOUNT_CREDENTIALS",
	"NETLIFY_ACCESS_TOKEN", "SNAPSHOT_BUCKET",
}

// LoadSettings reads .env when present and then the environment.
func LoadSettings() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return Settings{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	s := Settings{
		Port:        v.GetString("PORT"),
		DBURL:       v.GetString("DB_URL"),
		DBLogLevel:  v.GetString("DB_LOG_LEVEL"),
		AutoMigrate: v.GetBool("AUTO_MIGRATE"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		AdminSecret: v.GetString("ADMIN_SECRET"),
		CORSOrigins: v.GetString("CORS_ORIGINS"),

		LLMProvider:   v.GetString("LLM_PROVIDER"),
		LLMModel:      v.GetString("LLM_MODEL"),
		GeminiAPIKey:  v.GetString("GEMINI_API_KEY"),
		OpenAIAPIKey:  v.GetString("OPENAI_API_KEY"),
		GroqAPIKey:    v.GetString("GROQ_API_KEY"),
		GroqBaseURL:   v.GetString("GROQ_BASE_URL"),
		GCPProjectID:  v.GetString("GOOGLE_CLOUD_PROJECT_ID"),
		GCPLocation:   v.GetString("GOOGLE_CLOUD_VERTEXAI_LOCATION"),
		GCPCredential: v.GetString("GCP_SERVICE_ACCOUNT_CREDENTIALS"),

		GenerationTimeout: v.GetDuration("GENERATION_TIMEOUT"),
		ClassifyTimeout:   v.GetDuration("CLASSIFY_TIMEOUT"),

		NetlifyToken:    v.GetString("NETLIFY_ACCESS_TOKEN"),
		NetlifyAPIURL:   v.GetString("NETLIFY_API_URL"),
		DeployPollDelay: v.GetDuration("DEPLOY_POLL_DELAY"),
		SnapshotBucket:  v.GetString("SNAPSHOT_BUCKET"),
	}
	return s, nil
}

// RequireServe checks the settings the HTTP server cannot start without.
func (s Settings) RequireServe() error {
	if s.DBURL == "" {
		return fmt.Errorf("DB_URL environment variable is required")
	}
	if s.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Gemini completion endpoint configuration
	Gemini struct {
		APIKey     string
		BaseURL    string
		RetryCount int
		RetryDelay time.Duration
	}

	// GoogleCloud holds the service-account triple for speech synthesis
	GoogleCloud struct {
		ClientEmail string
		PrivateKey  string
		ProjectID   string
		TTSEndpoint string
		TokenURL    string
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		MaxBodySize    int64
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Sessions configuration
	Sessions struct {
		TTL                   time.Duration
		PurgeWindow           time.Duration
		MaxSessions           int
		MaxMessagesPerSession int
	}

	// Characters configuration
	Characters struct {
		Dir string
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Gemini config
		instance.Gemini.APIKey = getEnvString("GEMINI_API_KEY", "")
		instance.Gemini.BaseURL = getEnvString("GEMINI_API_URL",
			"https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent")
		instance.Gemini.RetryCount = getEnvInt("GEMINI_RETRY_COUNT", 3)
		instance.Gemini.RetryDelay = getEnvDuration("GEMINI_RETRY_DELAY", 1*time.Second)

		// Google Cloud config for TTS
		instance.GoogleCloud.ClientEmail = getEnvString("GOOGLE_CLOUD_CLIENT_EMAIL", "")
		instance.GoogleCloud.PrivateKey = getEnvString("GOOGLE_CLOUD_PRIVATE_KEY", "")
		instance.GoogleCloud.ProjectID = getEnvString("GOOGLE_CLOUD_PROJECT_ID", "")
		instance.GoogleCloud.TTSEndpoint = getEnvString("GOOGLE_TTS_ENDPOINT",
			"https://texttospeech.googleapis.com/v1/text:synthesize")
		instance.GoogleCloud.TokenURL = getEnvString("GOOGLE_TOKEN_URL",
			"https://oauth2.googleapis.com/token")

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Session config
		instance.Sessions.TTL = getEnvDuration("SESSION_TTL", 1*time.Hour)
		instance.Sessions.PurgeWindow = getEnvDuration("SESSION_PURGE_WINDOW", 10*time.Minute)
		instance.Sessions.MaxSessions = getEnvInt("MAX_SESSIONS", 1000)
		instance.Sessions.MaxMessagesPerSession = getEnvInt("MAX_MESSAGES_PER_SESSION", 1000)

		// Character config
		instance.Characters.Dir = getEnvString("CHARACTERS_DIR", "characters")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

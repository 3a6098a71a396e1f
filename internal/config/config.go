package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// LLM backends
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string

	// DentalChat platform API
	DentalChatBaseURL string
	DentalChatAPIKey  string
	DentalChatTimeout time.Duration

	// Intake behavior
	PainEmergencyThreshold int
	MaxConversationTurns   int
	SessionMaxAge          time.Duration

	// Dispatcher
	WorkerCount int

	// Optional stores
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string
}

// DemoAPIKey is the sentinel key that routes post creation to the mock client.
const DemoAPIKey = "demo_key"

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4-turbo-preview"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		DentalChatBaseURL: getEnv("DENTALCHAT_BASE_URL", "https://dentalchat.com/api"),
		DentalChatAPIKey:  getEnv("DENTALCHAT_API_KEY", DemoAPIKey),
		DentalChatTimeout: getEnvAsDuration("DENTALCHAT_TIMEOUT", 30*time.Second),

		PainEmergencyThreshold: getEnvAsInt("PAIN_EMERGENCY_THRESHOLD", 7),
		MaxConversationTurns:   getEnvAsInt("MAX_CONVERSATION_TURNS", 10),
		SessionMaxAge:          getEnvAsDuration("SESSION_MAX_AGE", 24*time.Hour),

		WorkerCount: getEnvAsInt("WORKER_COUNT", 2),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
	}
}

// UseMockDentalChat reports whether post creation should hit the mock client.
func (c *Config) UseMockDentalChat() bool {
	return c.DentalChatAPIKey == "" || c.DentalChatAPIKey == DemoAPIKey
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

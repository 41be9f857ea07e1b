package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string // optional; /ask requires a bearer token when set

	MessagesAPIURL  string
	RefreshSchedule string // cron spec for the corpus refresh job

	ChatModel      string
	EmbeddingModel string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	// Pipeline tuning. Defaults live here so they are not magic numbers
	// buried in the core packages.
	MinTokens      int     // records below this token count are low-information
	QualityCutoff  float64 // relevance filter keeps quality_score >= cutoff
	FuzzyNameFloor float64 // minimum similarity for a fuzzy name match
	RetrievalK     int     // number of candidates handed to the synthesizer
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:  getEnv("DATABASE_URL", "member_qa.db"),
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:    getEnv("JWT_SECRET", ""),

		MessagesAPIURL:  getEnv("MESSAGES_API_URL", ""),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@hourly"),

		ChatModel:      getEnv("CHAT_MODEL", "gemini-1.5-flash-latest"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
		LLMTimeout:     time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,

		MinTokens:      getEnvAsInt("MIN_TOKENS", 3),
		QualityCutoff:  getEnvAsFloat("QUALITY_CUTOFF", 0.3),
		FuzzyNameFloor: getEnvAsFloat("FUZZY_NAME_FLOOR", 0.8),
		RetrievalK:     getEnvAsInt("RETRIEVAL_K", 5),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

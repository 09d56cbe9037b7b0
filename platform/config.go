package platform

import (
	"os"
	"strconv"
	"time"
)

// Config collects every environment knob the server reads. Values are loaded
// once in main after godotenv has populated the process environment.
type Config struct {
	Port string

	SQLHost     string
	SQLPort     string
	SQLUser     string
	SQLPassword string
	SQLDBName   string

	AccessSecret string

	LLMBaseURL     string
	LLMAPIKey      string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int64
	LLMTimeout     time.Duration

	MaxHistoryMsgs  int
	MaxHistoryItems int

	PersonaDir     string
	DefaultPersona string

	AllowedOrigin string
}

func LoadConfig() Config {
	return Config{
		Port: getenv("PORT", "8080"),

		SQLHost:     os.Getenv("SQL_HOST"),
		SQLPort:     getenv("SQL_PORT", "3306"),
		SQLUser:     os.Getenv("SQL_USER"),
		SQLPassword: os.Getenv("SQL_PASSWORD"),
		SQLDBName:   getenv("SQL_DBNAME", "dialogos"),

		AccessSecret: os.Getenv("ACCESS_SECRET"),

		LLMBaseURL:     os.Getenv("LLM_BASE_URL"),
		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMModel:       getenv("LLM_MODEL", "gpt-4-turbo"),
		LLMTemperature: getenvFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:   int64(getenvInt("LLM_MAX_TOKENS", 256)),
		LLMTimeout:     time.Duration(getenvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,

		MaxHistoryMsgs:  getenvInt("MAX_HISTORY_MSGS", 20),
		MaxHistoryItems: getenvInt("MAX_HISTORY_ITEMS", 10),

		PersonaDir:     os.Getenv("PERSONA_DIR"),
		DefaultPersona: getenv("DEFAULT_PERSONA", "socrates"),

		AllowedOrigin: getenv("ALLOWED_ORIGINS", "*"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	// Storage
	StoreDriver string // "firestore", "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string

	// Firebase (Firestore, Auth, Cloud Messaging)
	FirebaseProjectID   string
	FirebaseCredentials string

	// Identity
	AuthMode        string // "firebase" or "local"
	JWTSecret       string
	JWTAccessExpiry time.Duration

	// Generative AI
	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string
	AITimeout     time.Duration

	// Semantic task search
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Reminders
	PubSubTopic        string
	PubSubSubscription string
	ReminderInterval   time.Duration

	// Free plan limits per day
	FreeDailyMessages    int
	FreeDailyGenerations int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Env:      getEnv("ENV", EnvLocal),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		StoreDriver: getEnv("STORE_DRIVER", "firestore"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "miinplanner.db"),

		FirebaseProjectID:   getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		AuthMode:        getEnv("AUTH_MODE", "firebase"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry: getDuration("JWT_ACCESS_EXPIRY", 24*time.Hour),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),
		AITimeout:     getDuration("AI_TIMEOUT", 30*time.Second),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		PubSubTopic:        getEnv("PUBSUB_TOPIC", ""),
		PubSubSubscription: getEnv("PUBSUB_SUBSCRIPTION", "reminder-notifications"),
		ReminderInterval:   getDuration("REMINDER_INTERVAL", time.Minute),

		FreeDailyMessages:    getInt("FREE_DAILY_MESSAGES", 20),
		FreeDailyGenerations: getInt("FREE_DAILY_GENERATIONS", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

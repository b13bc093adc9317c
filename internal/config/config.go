package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Engine  EngineConfig
	Keys    APIKeys
	Chat    ChatConfig
	Session SessionConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	WebDir             string
}

type EngineConfig struct {
	BaseURL        string
	APIKey         string
	FlowFilePath   string
	TimeoutSeconds int
}

type APIKeys struct {
	OpenAI   string
	Pinecone string
}

type ChatConfig struct {
	MemoryWindow      int
	ModelName         string
	Temperature       float64
	RetrievalTopK     int
	PineconeNamespace string
	FallbackReply     string
	RateLimitCalls    int
	RateLimitSeconds  int
	MemoTTLSeconds    int
	MemoMaxEntries    int
}

type SessionConfig struct {
	StoreDriver string // "memory" or "redis"
	RedisURL    string
	TTLMinutes  int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			WebDir:             getEnv("WEB_DIR", "./web"),
		},
		Engine: EngineConfig{
			BaseURL:        getEnv("ENGINE_BASE_URL", "http://localhost:7860"),
			APIKey:         getEnv("ENGINE_API_KEY", ""),
			FlowFilePath:   getEnv("FLOW_FILE_PATH", "ohochatflow.json"),
			TimeoutSeconds: getEnvAsInt("ENGINE_TIMEOUT_SECONDS", 120),
		},
		Keys: APIKeys{
			OpenAI:   getEnv("OPENAI_API_KEY", ""),
			Pinecone: getEnv("PINECONE_API_KEY", ""),
		},
		Chat: ChatConfig{
			MemoryWindow:      getEnvAsInt("MEMORY_WINDOW", 6),
			ModelName:         getEnv("MODEL_NAME", "gpt-4o-mini"),
			Temperature:       getEnvAsFloat("MODEL_TEMPERATURE", 0.1),
			RetrievalTopK:     getEnvAsInt("RETRIEVAL_TOP_K", 4),
			PineconeNamespace: getEnv("PINECONE_NAMESPACE", ""),
			FallbackReply:     getEnv("FALLBACK_REPLY", ""),
			RateLimitCalls:    getEnvAsInt("RATE_LIMIT_CALLS", 60),
			RateLimitSeconds:  getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			MemoTTLSeconds:    getEnvAsInt("MEMO_TTL_SECONDS", 0),
			MemoMaxEntries:    getEnvAsInt("MEMO_MAX_ENTRIES", 256),
		},
		Session: SessionConfig{
			StoreDriver: getEnv("SESSION_STORE", "memory"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
			TTLMinutes:  getEnvAsInt("SESSION_TTL_MINUTES", 60),
		},
	}
}

// ValidateCredentials checks the provider credentials the flow engine needs
// when it falls back to environment configuration. The gateway refuses to
// accept turns while this returns an error; it is checked once at startup,
// never mid-call.
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.Keys.OpenAI == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Keys.Pinecone == "" {
		missing = append(missing, "PINECONE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

// Package config loads the service's configuration from environment
// variables (with a .env fallback), layered on viper for defaults.
package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved service configuration.
type Config struct {
	Router      RouterConfig
	Retrieval   RetrievalConfig
	History     HistoryConfig
	Agent       AgentConfig
	Qdrant      QdrantConfig
	Ollama      OllamaConfig
	Session     SessionConfig
	HTTP        HTTPConfig
	LogFilePath string
}

type RouterConfig struct {
	ConfidenceThreshold float64
	SecondaryTopK       int
}

type RetrievalConfig struct {
	DefaultLimit int
	MaxLimit     int
	ScoreFloor   float32
}

type HistoryConfig struct {
	Window int
}

type AgentConfig struct {
	SoftTimeoutSeconds int
	HardTimeoutSeconds int
	Default            string
}

type QdrantConfig struct {
	URL        string
	Collection string
	Dimension  int
}

type OllamaConfig struct {
	BaseURL    string
	ChatModel  string
	EmbedModel string
}

type SessionConfig struct {
	Backend  string // "memory" or "redis"
	RedisURL string
}

type HTTPConfig struct {
	Port               string
	CorsAllowedOrigins string
}

// Load reads configuration from the environment, falling back to a
// local .env file when present, and applying the documented defaults
// for anything left unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("note: .env file not found, using system environment")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ROUTER_CONFIDENCE_THRESHOLD", 0.3)
	v.SetDefault("ROUTER_SECONDARY_TOPK", 2)
	v.SetDefault("RETRIEVAL_DEFAULT_LIMIT", 5)
	v.SetDefault("RETRIEVAL_MAX_LIMIT", 20)
	v.SetDefault("RETRIEVAL_SCORE_FLOOR", 0.0)
	v.SetDefault("HISTORY_WINDOW", 10)
	v.SetDefault("AGENT_SOFT_TIMEOUT_S", 20)
	v.SetDefault("AGENT_HARD_TIMEOUT_S", 30)
	v.SetDefault("AGENT_DEFAULT", "book")
	v.SetDefault("QDRANT_URL", "localhost:6334")
	v.SetDefault("QDRANT_COLLECTION", "course_material")
	v.SetDefault("QDRANT_DIMENSION", 4096)
	v.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_CHAT_MODEL", "llama3")
	v.SetDefault("OLLAMA_EMBED_MODEL", "llama3")
	v.SetDefault("SESSION_BACKEND", "memory")
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_FILE_PATH", "chatbot.log")

	return &Config{
		Router: RouterConfig{
			ConfidenceThreshold: v.GetFloat64("ROUTER_CONFIDENCE_THRESHOLD"),
			SecondaryTopK:       v.GetInt("ROUTER_SECONDARY_TOPK"),
		},
		Retrieval: RetrievalConfig{
			DefaultLimit: v.GetInt("RETRIEVAL_DEFAULT_LIMIT"),
			MaxLimit:     v.GetInt("RETRIEVAL_MAX_LIMIT"),
			ScoreFloor:   float32(v.GetFloat64("RETRIEVAL_SCORE_FLOOR")),
		},
		History: HistoryConfig{
			Window: v.GetInt("HISTORY_WINDOW"),
		},
		Agent: AgentConfig{
			SoftTimeoutSeconds: v.GetInt("AGENT_SOFT_TIMEOUT_S"),
			HardTimeoutSeconds: v.GetInt("AGENT_HARD_TIMEOUT_S"),
			Default:            v.GetString("AGENT_DEFAULT"),
		},
		Qdrant: QdrantConfig{
			URL:        v.GetString("QDRANT_URL"),
			Collection: v.GetString("QDRANT_COLLECTION"),
			Dimension:  v.GetInt("QDRANT_DIMENSION"),
		},
		Ollama: OllamaConfig{
			BaseURL:    v.GetString("OLLAMA_BASE_URL"),
			ChatModel:  v.GetString("OLLAMA_CHAT_MODEL"),
			EmbedModel: v.GetString("OLLAMA_EMBED_MODEL"),
		},
		Session: SessionConfig{
			Backend:  v.GetString("SESSION_BACKEND"),
			RedisURL: v.GetString("REDIS_URL"),
		},
		HTTP: HTTPConfig{
			Port:               v.GetString("HTTP_PORT"),
			CorsAllowedOrigins: v.GetString("CORS_ALLOWED_ORIGINS"),
		},
		LogFilePath: v.GetString("LOG_FILE_PATH"),
	}
}

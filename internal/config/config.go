package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "memory", "sqlite" or "firestore"
	SQLitePath     string
	UseMockLLM     bool // true = use mock even on GCP

	// Optional YAML overrides for the built-in phrase sets.
	SafetyPhrasesPath string
	EmotionLexiconPath string

	// Turn pipeline budgets.
	AgentTimeout time.Duration
	TurnTimeout  time.Duration

	// Agent weight bounds and reflection tuning.
	WeightDefault      float64
	WeightMin          float64
	WeightMax          float64
	LearningRate       float64
	ScoreBaseline      float64
	ReflectionInterval time.Duration

	// Emotion graph projection.
	GraphWindow   time.Duration
	GraphCacheTTL time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "TRUE"
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Load reads .env (when present) and all env vars, and builds the config.
func Load() *Config {
	_ = godotenv.Load()

	modeStr := getEnv("SOULSYNC_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		Port: getEnv("SOULSYNC_PORT", "8080"),

		GCPProjectID: getEnv("SOULSYNC_GCP_PROJECT", ""),
		GCPLocation:  getEnv("SOULSYNC_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("SOULSYNC_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: getEnv("SOULSYNC_STORAGE_BACKEND", "memory"),
		SQLitePath:     getEnv("SOULSYNC_SQLITE_PATH", "soulsync.db"),
		UseMockLLM:     getBoolEnv("SOULSYNC_USE_MOCK_LLM", mode == ModeLocal),

		SafetyPhrasesPath:  getEnv("SOULSYNC_SAFETY_PHRASES", ""),
		EmotionLexiconPath: getEnv("SOULSYNC_EMOTION_LEXICON", ""),

		AgentTimeout: getDurationEnv("SOULSYNC_AGENT_TIMEOUT", 12*time.Second),
		TurnTimeout:  getDurationEnv("SOULSYNC_TURN_TIMEOUT", 30*time.Second),

		WeightDefault:      getFloatEnv("SOULSYNC_WEIGHT_DEFAULT", 1.0),
		WeightMin:          getFloatEnv("SOULSYNC_WEIGHT_MIN", 0.25),
		WeightMax:          getFloatEnv("SOULSYNC_WEIGHT_MAX", 2.0),
		LearningRate:       getFloatEnv("SOULSYNC_LEARNING_RATE", 0.2),
		ScoreBaseline:      getFloatEnv("SOULSYNC_SCORE_BASELINE", 0.33),
		ReflectionInterval: getDurationEnv("SOULSYNC_REFLECTION_INTERVAL", 5*time.Minute),

		GraphWindow:   getDurationEnv("SOULSYNC_GRAPH_WINDOW", 30*24*time.Hour),
		GraphCacheTTL: getDurationEnv("SOULSYNC_GRAPH_CACHE_TTL", time.Minute),
	}

	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("SOULSYNC_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}

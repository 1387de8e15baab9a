package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr     string
	DBPath         string
	VisionBackend  string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string
	ClaudeAPIKey   string
	ClaudeModel    string
	OllamaHost     string
	OllamaModel    string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	LogLevel       string
	LogFormat      string
	LogFile        string
}

// Load reads configuration from the environment. Malformed numeric and
// duration values fall back to their defaults.
func Load() *Config {
	return &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DBPath:         getEnv("DB_PATH", "/data/recipelens.db"),
		VisionBackend:  getEnv("VISION_BACKEND", "gemini"),
		GeminiAPIKey:   firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("API_KEY")),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:  getEnv("GEMINI_BASE_URL", ""),
		ClaudeAPIKey:   getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:    getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llava"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
		SessionTTL:     getEnvDuration("SESSION_TTL", 2*time.Hour),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		LogFile:        getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package config provides configuration for the gateway.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultSystemPrompt is sent as the system message of every chat request.
const DefaultSystemPrompt = `You are Kangtani.ai, an agricultural assistant designed to help farmers and agricultural professionals.
You provide expert advice on farming techniques, crop management, pest control, soil health, and sustainable agriculture practices.
Always provide practical, actionable advice that considers local conditions and best practices.
If you're unsure about something, acknowledge the limitation and suggest consulting local agricultural experts.`

// Config holds the gateway configuration.
type Config struct {
	// Server settings
	HTTPPort    int
	CORSOrigins []string
	MaxUploadMB int

	// Model server
	OllamaURL     string
	Model         string
	ModelTimeout  time.Duration
	HealthTimeout time.Duration
	ModelOptions  ModelOptions

	// Transcription
	STTBackend    string
	WhisperURL    string
	WhisperAPIKey string
	WhisperModel  string

	// Request ledger
	DatabaseURL string

	// Logging
	LogLevel string

	// Mode is "MOCK" to run without a model server.
	Mode string
}

// ModelOptions is the [model] section of the optional TOML file.
type ModelOptions struct {
	SystemPrompt string  `toml:"system_prompt"`
	Temperature  float64 `toml:"temperature"`
	TopP         float64 `toml:"top_p"`
	NumPredict   int     `toml:"num_predict"`
}

type fileConfig struct {
	Model ModelOptions `toml:"model"`
}

// DefaultModelOptions returns the sampling options used when no file overrides them.
func DefaultModelOptions() ModelOptions {
	return ModelOptions{
		SystemPrompt: DefaultSystemPrompt,
		Temperature:  0.7,
		TopP:         0.9,
		NumPredict:   2048,
	}
}

// Load loads configuration from .env, an optional TOML file and environment variables.
func Load() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: failed to load .env: %v", err)
	}

	cfg := &Config{
		HTTPPort:      getEnvInt("HTTP_PORT", 8000),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000,*")),
		MaxUploadMB:   getEnvInt("MAX_UPLOAD_MB", 25),
		OllamaURL:     getEnv("OLLAMA_URL", "http://localhost:11434"),
		Model:         getEnv("OLLAMA_MODEL", "gemma3n:e2b"),
		ModelTimeout:  time.Duration(getEnvInt("MODEL_TIMEOUT_MS", 600000)) * time.Millisecond,
		HealthTimeout: time.Duration(getEnvInt("HEALTH_TIMEOUT_MS", 5000)) * time.Millisecond,
		ModelOptions:  DefaultModelOptions(),
		STTBackend:    strings.ToLower(getEnv("STT_BACKEND", "none")),
		WhisperURL:    getEnv("WHISPER_URL", "http://localhost:8178/v1"),
		WhisperAPIKey: getEnv("WHISPER_API_KEY", ""),
		WhisperModel:  getEnv("WHISPER_MODEL", "whisper-1"),
		DatabaseURL:   getEnv("DATABASE_URL", "file:kangtani.db?cache=shared&mode=rwc"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Mode:          getEnv("KANGTANI_MODE", ""),
	}

	path := getEnv("KANGTANI_CONFIG", "kangtani.toml")
	if _, err := os.Stat(path); err == nil {
		opts, err := LoadModelOptions(path, cfg.ModelOptions)
		if err != nil {
			log.Printf("WARN: ignoring config file %s: %v", path, err)
		} else {
			cfg.ModelOptions = opts
			log.Printf("Loaded model options from %s", path)
		}
	}

	return cfg
}

// LoadModelOptions decodes the [model] section of a TOML file on top of base.
// Fields absent from the file keep their base values.
func LoadModelOptions(path string, base ModelOptions) (ModelOptions, error) {
	fc := fileConfig{Model: base}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return base, err
	}
	if strings.TrimSpace(fc.Model.SystemPrompt) == "" {
		fc.Model.SystemPrompt = base.SystemPrompt
	}
	return fc.Model, nil
}

// MaxUploadBytes is the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Debug reports whether verbose prompt logging is on.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

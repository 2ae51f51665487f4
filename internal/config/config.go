package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// APIKeyName is the name of the chat-model credential in the secrets file
	// and in the environment.
	APIKeyName = "PPLX_API_KEY"

	defaultSecretsFile = "./configs/secrets.toml"
	defaultEnvFile     = ".env"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	LLM        LLMConfig        `yaml:"llm"`
	EmbedLLM   LLMConfig        `yaml:"embed_llm"`
	RAG        RAGConfig        `yaml:"rag"`
	Search     SearchConfig     `yaml:"search"`
	Perplexity PerplexityConfig `yaml:"perplexity"`
	Session    SessionConfig    `yaml:"session"`
	Secrets    SecretsConfig    `yaml:"secrets"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	GinMode   string `yaml:"gin_mode"`
	UploadDir string `yaml:"upload_dir"`
}

// LLMConfig describes a model endpoint. Provider is only consulted for the
// embedding model ("ollama" or "openai").
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
	MemoryWindow int `yaml:"memory_window"`
	ConciseLimit int `yaml:"concise_limit"`
}

type SearchConfig struct {
	MaxResults int    `yaml:"max_results"`
	UserAgent  string `yaml:"user_agent"`
}

type PerplexityConfig struct {
	Enabled         bool     `yaml:"enabled"`
	ModelPath       string   `yaml:"model_path"`
	ModelConfigPath string   `yaml:"model_config_path"`
	ONNXLibPath     string   `yaml:"onnx_lib_path"`
	Encoding        string   `yaml:"encoding"`
	Stride          int      `yaml:"stride"`
	InputNames      []string `yaml:"input_names"`
	OutputName      string   `yaml:"output_name"`
}

type SessionConfig struct {
	TTLMinutes   int    `yaml:"ttl_minutes"`
	CookieName   string `yaml:"cookie_name"`
	CleanupEvery int    `yaml:"cleanup_minutes"`
}

type SecretsConfig struct {
	File    string `yaml:"file"`
	EnvFile string `yaml:"env_file"`
}

// LoadConfig reads the YAML file at path, applies defaults for anything left
// unset and environment overrides, then resolves the chat-model credential.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}
	applyDefaults(cfg)
	overrideByEnv(cfg)

	if cfg.LLM.Key == "" {
		cfg.LLM.Key = ResolveAPIKey(cfg.Secrets.File, cfg.Secrets.EnvFile)
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// ResolveAPIKey looks the credential up in the hosted secrets file first and
// falls back to a local env file and the process environment. An absent
// credential resolves to the empty string.
func ResolveAPIKey(secretsFile, envFile string) string {
	if secretsFile != "" {
		var secrets map[string]any
		if _, err := toml.DecodeFile(secretsFile, &secrets); err == nil {
			if v, ok := secrets[APIKeyName].(string); ok && v != "" {
				return v
			}
		}
	}
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}
	return os.Getenv(APIKeyName)
}

func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "document-chat",
			Host:      "0.0.0.0",
			Port:      8501,
			GinMode:   "release",
			UploadDir: ".",
		},
		LLM: LLMConfig{
			BaseURL: "https://api.perplexity.ai",
			Model:   "sonar",
		},
		EmbedLLM: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "nomic-embed-text",
		},
		RAG: RAGConfig{
			ChunkSize:    500,
			ChunkOverlap: 100,
			TopK:         4,
			MemoryWindow: 10,
			ConciseLimit: 250,
		},
		Search: SearchConfig{
			MaxResults: 5,
			UserAgent:  "document-chat/1.0",
		},
		Perplexity: PerplexityConfig{
			Enabled:         true,
			ModelPath:       "./models/distilgpt2/model.onnx",
			ModelConfigPath: "./models/distilgpt2/config.json",
			Encoding:        "r50k_base",
			Stride:          512,
			InputNames:      []string{"input_ids", "attention_mask"},
			OutputName:      "logits",
		},
		Session: SessionConfig{
			TTLMinutes:   60,
			CookieName:   "chat_session",
			CleanupEvery: 10,
		},
		Secrets: SecretsConfig{
			File:    defaultSecretsFile,
			EnvFile: defaultEnvFile,
		},
	}
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.App.Port == 0 {
		cfg.App.Port = def.App.Port
	}
	if cfg.App.UploadDir == "" {
		cfg.App.UploadDir = def.App.UploadDir
	}
	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		cfg.RAG.ChunkOverlap = min(def.RAG.ChunkOverlap, cfg.RAG.ChunkSize/2)
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.RAG.MemoryWindow <= 0 {
		cfg.RAG.MemoryWindow = def.RAG.MemoryWindow
	}
	if cfg.RAG.ConciseLimit <= 0 {
		cfg.RAG.ConciseLimit = def.RAG.ConciseLimit
	}
	if cfg.Search.MaxResults <= 0 {
		cfg.Search.MaxResults = def.Search.MaxResults
	}
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = def.Search.UserAgent
	}
	if cfg.Perplexity.Stride <= 0 {
		cfg.Perplexity.Stride = def.Perplexity.Stride
	}
	if cfg.Perplexity.Encoding == "" {
		cfg.Perplexity.Encoding = def.Perplexity.Encoding
	}
	if len(cfg.Perplexity.InputNames) == 0 {
		cfg.Perplexity.InputNames = def.Perplexity.InputNames
	}
	if cfg.Perplexity.OutputName == "" {
		cfg.Perplexity.OutputName = def.Perplexity.OutputName
	}
	if cfg.Session.TTLMinutes <= 0 {
		cfg.Session.TTLMinutes = def.Session.TTLMinutes
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = def.Session.CookieName
	}
	if cfg.Session.CleanupEvery <= 0 {
		cfg.Session.CleanupEvery = def.Session.CleanupEvery
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.UploadDir = getEnv("UPLOAD_DIR", cfg.App.UploadDir)

	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)

	cfg.EmbedLLM.Provider = getEnv("EMBED_PROVIDER", cfg.EmbedLLM.Provider)
	cfg.EmbedLLM.BaseURL = getEnv("EMBED_BASE_URL", cfg.EmbedLLM.BaseURL)
	cfg.EmbedLLM.Model = getEnv("EMBED_MODEL", cfg.EmbedLLM.Model)
	cfg.EmbedLLM.Key = getEnv("EMBED_API_KEY", cfg.EmbedLLM.Key)

	cfg.Perplexity.ModelPath = getEnv("PERPLEXITY_MODEL_PATH", cfg.Perplexity.ModelPath)
	cfg.Perplexity.ONNXLibPath = getEnv("ONNX_LIB_PATH", cfg.Perplexity.ONNXLibPath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

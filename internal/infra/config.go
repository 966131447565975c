package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTextModel   = "meta-llama/llama-3.3-70b-instruct"
	defaultVisionModel = "google/gemini-2.0-flash-001"
	defaultChatURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultHFURLPrefix = "https://api-inference.huggingface.co/models/"
)

// StageConfig is the model configuration of one pipeline stage.
type StageConfig struct {
	Provider    string
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	APIKey      string
}

// StageConfigs groups the per-stage model settings.
type StageConfigs struct {
	Triage    StageConfig
	Vision    StageConfig
	Diagnosis StageConfig
	Pricing   StageConfig
	Quote     StageConfig
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	CORSAllowedOrigins []string

	StorageDriver   string
	StoragePath     string
	StorageBaseURL  string
	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3UseSSL        bool
	S3PublicBaseURL string
	UploadMaxBytes  int64

	OpenRouterAPIKey string
	HuggingFaceToken string
	GeminiAPIKey     string

	Stages StageConfigs
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "filesystem")),
		StoragePath:     getEnv("STORAGE_PATH", "./data/uploads"),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3Region:        getEnv("S3_REGION", "ap-southeast-2"),
		S3AccessKey:     os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:     os.Getenv("S3_SECRET_KEY"),
		S3Bucket:        getEnv("S3_BUCKET", "caf-copilot-media"),
		S3UseSSL:        getEnvBool("S3_USE_SSL", true),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		UploadMaxBytes:  int64(getEnvInt("UPLOAD_MAX_BYTES", 15<<20)),

		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", os.Getenv("OPENAI_API_KEY")),
		HuggingFaceToken: os.Getenv("HF_TOKEN"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
	}

	cfg.Stages = StageConfigs{
		Triage:    loadStage("TRIAGE", defaultTextModel, 1200),
		Vision:    loadStage("VISION", defaultVisionModel, 1200),
		Diagnosis: loadStage("DIAGNOSIS", defaultTextModel, 1600),
		Pricing:   loadStage("PRICING", defaultTextModel, 800),
		Quote:     loadStage("QUOTE", defaultTextModel, 1200),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	switch cfg.StorageDriver {
	case "filesystem":
	case "s3":
		if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
			return nil, fmt.Errorf("S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY are required for the s3 storage driver")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	for name, st := range map[string]StageConfig{
		"TRIAGE": cfg.Stages.Triage, "VISION": cfg.Stages.Vision, "DIAGNOSIS": cfg.Stages.Diagnosis,
		"PRICING": cfg.Stages.Pricing, "QUOTE": cfg.Stages.Quote,
	} {
		switch st.Provider {
		case "openai", "huggingface", "gemini":
		default:
			return nil, fmt.Errorf("unsupported %s_PROVIDER %q", name, st.Provider)
		}
	}

	return cfg, nil
}

// ProviderKey returns the process-wide key for a provider, if any.
func (c *Config) ProviderKey(provider string) string {
	switch provider {
	case "openai":
		return c.OpenRouterAPIKey
	case "huggingface":
		return c.HuggingFaceToken
	case "gemini":
		return c.GeminiAPIKey
	}
	return ""
}

func loadStage(prefix, model string, maxTokens int) StageConfig {
	provider := strings.ToLower(getEnv(prefix+"_PROVIDER", "openai"))
	if provider == "openrouter" {
		provider = "openai"
	}
	st := StageConfig{
		Provider:    provider,
		Endpoint:    os.Getenv(prefix + "_ENDPOINT"),
		Model:       getEnv(prefix+"_MODEL", model),
		Temperature: getEnvFloat(prefix+"_TEMPERATURE", 0.2),
		MaxTokens:   getEnvInt(prefix+"_MAX_TOKENS", maxTokens),
		Timeout:     time.Second * time.Duration(getEnvInt(prefix+"_TIMEOUT_SECONDS", 60)),
		APIKey:      os.Getenv(prefix + "_API_KEY"),
	}
	if st.Endpoint == "" {
		switch provider {
		case "openai":
			st.Endpoint = defaultChatURL
		case "huggingface":
			st.Endpoint = defaultHFURLPrefix + st.Model
		}
	}
	return st
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

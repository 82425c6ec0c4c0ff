// Package config handles application configuration using Viper.
// Viper merges defaults, an optional YAML file and environment variables, in that
// priority order, into a typed Config struct.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration struct.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Roles     RolesConfig     `mapstructure:"roles"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Review    ReviewConfig    `mapstructure:"review"`
	Image     ImageConfig     `mapstructure:"image"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RolesConfig points at the persona YAML file. An empty path means the
// personas compiled into the binary.
type RolesConfig struct {
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	// Provider selects the backend: "dashscope", "openai" or "anthropic".
	Provider     string          `mapstructure:"provider"`
	Timeout      time.Duration   `mapstructure:"timeout"`
	TextModels   []string        `mapstructure:"text_models"`
	VisionModels []string        `mapstructure:"vision_models"`
	DashScope    DashScopeConfig `mapstructure:"dashscope"`
	OpenAI       OpenAIConfig    `mapstructure:"openai"`
	Anthropic    AnthropicConfig `mapstructure:"anthropic"`
}

type DashScopeConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type AnthropicConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

type ReviewConfig struct {
	// ImageInstruction is appended to the persona prompt for image reviews.
	ImageInstruction string `mapstructure:"image_instruction"`
}

type ImageConfig struct {
	// MaxDimension downsizes larger uploads before they are sent. 0 sends raw bytes.
	MaxDimension int   `mapstructure:"max_dimension"`
	MaxBytes     int64 `mapstructure:"max_bytes"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`

	// UploadTTL is how long an unreviewed upload may stay on disk.
	UploadTTL time.Duration `mapstructure:"upload_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7860)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:7860"})
	v.SetDefault("roles.path", "")
	v.SetDefault("llm.provider", "dashscope")
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("llm.text_models", []string{"qwen-turbo", "qwen-plus", "qwen-max"})
	v.SetDefault("llm.vision_models", []string{"qwen-vl-plus", "qwen-vl-max"})
	v.SetDefault("llm.dashscope.base_url", "https://dashscope.aliyuncs.com/api/v1")
	v.SetDefault("llm.openai.base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.anthropic.max_tokens", 1024)
	v.SetDefault("review.image_instruction", "\n\nPlease review this image directly.")
	v.SetDefault("image.max_dimension", 0)
	v.SetDefault("image.max_bytes", 10<<20)
	v.SetDefault("storage.upload_dir", "./storage/uploads")
	v.SetDefault("storage.upload_ttl", time.Hour)
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("log.level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// A missing default config file is fine; an explicit path must exist.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// JURY_SERVER_PORT=9090 → server.port=9090
	v.SetEnvPrefix("JURY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if len(cfg.LLM.TextModels) == 0 || len(cfg.LLM.VisionModels) == 0 {
		return nil, fmt.Errorf("llm.text_models and llm.vision_models must not be empty")
	}

	return &cfg, nil
}

// Address returns the listen address string like "0.0.0.0:7860".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultTextModel is the first configured text model.
func (l LLMConfig) DefaultTextModel() string {
	return l.TextModels[0]
}

// DefaultVisionModel is the first configured vision model.
func (l LLMConfig) DefaultVisionModel() string {
	return l.VisionModels[0]
}

// ResolveTextModel maps an empty choice to the default and rejects models
// that are not offered.
func (l LLMConfig) ResolveTextModel(choice string) (string, error) {
	return resolveModel(choice, l.TextModels)
}

// ResolveVisionModel is ResolveTextModel for the image endpoint.
func (l LLMConfig) ResolveVisionModel(choice string) (string, error) {
	return resolveModel(choice, l.VisionModels)
}

func resolveModel(choice string, offered []string) (string, error) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return offered[0], nil
	}
	for _, m := range offered {
		if m == choice {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported model %q", choice)
}

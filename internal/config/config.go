package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/visionrelay/visionrelay/internal/common"
)

// Config is the root configuration loaded from YAML.
type Config struct {
	Server ServerConfig `yaml:"server"`
	LLM    LLMConfig    `yaml:"llm"`
}

// ServerConfig holds HTTP server and runtime settings.
type ServerConfig struct {
	Addr           string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	MaxUploadSize  ByteSize      `yaml:"maxUploadSize"`
	APIKey         string        `yaml:"apiKey"`         // optional static API key header (X-API-Key)
	AllowedOrigins []string      `yaml:"allowedOrigins"` // CORS origins; default ["*"]
	LogLevel       string        `yaml:"logLevel"`       // debug|info|warn|error
}

// LLMConfig selects provider and provider-specific options.
type LLMConfig struct {
	Provider string         `yaml:"provider"` // "ollama" or "mock"
	Ollama   OllamaSettings `yaml:"ollama"`
	Mock     MockSettings   `yaml:"mock"`
}

// OllamaSettings config for the Ollama generate endpoint.
type OllamaSettings struct {
	BaseURL        string        `yaml:"baseUrl"` // e.g. http://localhost:11434
	Model          string        `yaml:"model"`   // e.g. deepseek-ocr
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// MockSettings config for the mock LLM.
type MockSettings struct {
	Delay time.Duration `yaml:"delay"`
	Text  string        `yaml:"text"` // canned response text
}

// ByteSize represents a size in bytes that unmarshals from strings like "10Mi", "20MB", "512KiB", "1024".
type ByteSize uint64

// UnmarshalYAML implements yaml unmarshalling for ByteSize.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		parsed, err := ParseByteSize(strings.TrimSpace(value.Value))
		if err != nil {
			return err
		}
		*b = ByteSize(parsed)
		return nil
	}
	return fmt.Errorf("invalid bytesize node kind: %v", value.Kind)
}

var reNumeric = regexp.MustCompile(`^\d+$`)

// ParseByteSize parses a string like "10Mi", "20MB", "512KiB", "1024" into bytes.
// Supports Kubernetes-style quantities for binary units: Ki, Mi, Gi (case-insensitive).
// Also accepts KiB/MiB/GiB and decimal KB/MB/GB, and bare bytes.
func ParseByteSize(s string) (uint64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty size")
	}
	if reNumeric.MatchString(s) {
		val, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size number: %w", err)
		}
		return val, nil
	}

	up := strings.ToUpper(s)
	type unit struct {
		suffix string
		value  uint64
	}
	units := []unit{
		{"KIB", 1024},
		{"MIB", 1024 * 1024},
		{"GIB", 1024 * 1024 * 1024},
		{"KI", 1024},
		{"MI", 1024 * 1024},
		{"GI", 1024 * 1024 * 1024},
		{"KB", 1000},
		{"MB", 1000 * 1000},
		{"GB", 1000 * 1000 * 1000},
		{"B", 1},
	}
	for _, u := range units {
		if strings.HasSuffix(up, u.suffix) {
			num := strings.TrimSpace(s[:len(s)-len(u.suffix)])
			val, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size number in %q: %w", orig, err)
			}
			return uint64(val * float64(u.value)), nil
		}
	}
	return 0, fmt.Errorf("unknown size suffix in %q", orig)
}

// Load reads YAML config from path, expands environment variables, and validates it.
// If path is empty, it will attempt to read from env var VISIONRELAY_CONFIG, then default to "config.yaml".
func Load(path string) (*Config, error) {
	// Optional .env file so ${VAR} references in the config resolve locally.
	_ = godotenv.Load()

	if path == "" {
		if env := os.Getenv("VISIONRELAY_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - reading sanitized config file path is expected
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Must exceed the upstream request timeout or responses get cut off mid-write.
		cfg.Server.WriteTimeout = 3 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = ByteSize(10 * 1024 * 1024) // 10 MiB default
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if strings.TrimSpace(cfg.Server.LogLevel) == "" {
		cfg.Server.LogLevel = "info"
	}

	// LLM defaults
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if strings.EqualFold(cfg.LLM.Provider, "ollama") {
		if strings.TrimSpace(cfg.LLM.Ollama.BaseURL) == "" {
			cfg.LLM.Ollama.BaseURL = common.DefaultOllamaBaseURL
		}
		if strings.TrimSpace(cfg.LLM.Ollama.Model) == "" {
			cfg.LLM.Ollama.Model = common.DefaultModelName
		}
		if cfg.LLM.Ollama.RequestTimeout == 0 {
			cfg.LLM.Ollama.RequestTimeout = 2 * time.Minute
		}
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.LLM.Provider)) {
	case "ollama":
		if strings.TrimSpace(cfg.LLM.Ollama.BaseURL) == "" {
			return errors.New("llm.ollama.baseUrl is required")
		}
		if strings.TrimSpace(cfg.LLM.Ollama.Model) == "" {
			return errors.New("llm.ollama.model is required")
		}
	case "mock":
		// nothing to validate
	default:
		return fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Server.LogLevel)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logLevel %q", cfg.Server.LogLevel)
	}
	return nil
}

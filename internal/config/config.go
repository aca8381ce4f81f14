// Package config loads the YAML configuration used by the qrme command.
//
// Example:
//
//	secure_memory:
//	  locked: false          # back secrets with mlock'd memguard buffers
//	  max_buffer_size: 268435456
//	model:
//	  max_layers: 10
//	keys:
//	  secret_key_file: "model.sk"
//	  public_key_file: "model.pk"
//	  signing_secret_key_file: "signer.sk"
//	  signing_public_key_file: "signer.pk"
//	log:
//	  level: "info"          # debug, info, warn, error
//	  format: "text"         # text or json
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default limits.
const (
	DefaultMaxLayers     = 10
	DefaultMaxBufferSize = 256 << 20
)

// Config is the full command configuration.
type Config struct {
	SecureMemory SecureMemoryConfig `yaml:"secure_memory"`
	Model        ModelConfig        `yaml:"model"`
	Keys         KeysConfig         `yaml:"keys"`
	Log          LogConfig          `yaml:"log"`
}

// SecureMemoryConfig controls how secret buffers are allocated.
type SecureMemoryConfig struct {
	Locked        bool `yaml:"locked"`
	MaxBufferSize int  `yaml:"max_buffer_size"`
}

// ModelConfig bounds model files.
type ModelConfig struct {
	MaxLayers int `yaml:"max_layers"`
}

// KeysConfig holds default key file paths. Flags override them.
type KeysConfig struct {
	SecretKeyFile        string `yaml:"secret_key_file"`
	PublicKeyFile        string `yaml:"public_key_file"`
	SigningSecretKeyFile string `yaml:"signing_secret_key_file"`
	SigningPublicKeyFile string `yaml:"signing_public_key_file"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		SecureMemory: SecureMemoryConfig{MaxBufferSize: DefaultMaxBufferSize},
		Model:        ModelConfig{MaxLayers: DefaultMaxLayers},
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Model.MaxLayers <= 0 {
		return fmt.Errorf("model.max_layers must be positive, got %d", c.Model.MaxLayers)
	}
	if c.SecureMemory.MaxBufferSize < 0 {
		return fmt.Errorf("secure_memory.max_buffer_size must not be negative, got %d", c.SecureMemory.MaxBufferSize)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Logger builds a slog.Logger writing to w according to c.Log.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

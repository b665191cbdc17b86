// Package config loads requestkit settings from requestkit.toml in
// standard locations, with environment-variable fallback for API keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/vinayprograms/requestkit/dedup"
	"github.com/vinayprograms/requestkit/llm"
	"github.com/vinayprograms/requestkit/ratelimit"
)

// RateLimit configures the token bucket.
type RateLimit struct {
	TokensPerSecond float64 `toml:"tokens_per_second"`
	BurstSize       int     `toml:"burst_size"`
}

// Dedup configures request deduplication and debounce batching.
type Dedup struct {
	TTL        duration `toml:"ttl"`
	BatchDelay duration `toml:"batch_delay"`
}

// Provider is one [[provider]] block.
type Provider struct {
	Type      string `toml:"type"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"`
}

// Config is the full requestkit.toml document.
type Config struct {
	RateLimit RateLimit  `toml:"ratelimit"`
	Dedup     Dedup      `toml:"dedup"`
	Providers []Provider `toml:"provider"`
}

// duration accepts TOML strings like "30s" or "300ms".
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		RateLimit: RateLimit{
			TokensPerSecond: ratelimit.DefaultTokensPerSecond,
			BurstSize:       ratelimit.DefaultBurstSize,
		},
		Dedup: Dedup{
			TTL:        duration(dedup.DefaultTTL),
			BatchDelay: duration(dedup.DefaultBatchDelay),
		},
	}
}

// StandardPaths returns the config file locations in priority order.
func StandardPaths() []string {
	paths := []string{"requestkit.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "requestkit", "requestkit.toml"),
			filepath.Join(home, ".requestkit", "requestkit.toml"))
	}
	return paths
}

// Load reads the first config file found on the standard paths. When no
// file exists the defaults are returned with an empty path and no error.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			return cfg, path, err
		}
	}
	return Default(), "", nil
}

// LoadFile reads one config file. Absent settings keep their defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings that would misconfigure the pipeline.
func (c *Config) Validate() error {
	if c.RateLimit.TokensPerSecond <= 0 {
		return fmt.Errorf("ratelimit.tokens_per_second must be positive, got %v",
			c.RateLimit.TokensPerSecond)
	}
	if c.RateLimit.BurstSize < 1 {
		return fmt.Errorf("ratelimit.burst_size must be at least 1, got %d",
			c.RateLimit.BurstSize)
	}
	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("dedup.ttl must be positive, got %v",
			time.Duration(c.Dedup.TTL))
	}
	if c.Dedup.BatchDelay <= 0 {
		return fmt.Errorf("dedup.batch_delay must be positive, got %v",
			time.Duration(c.Dedup.BatchDelay))
	}
	for i, p := range c.Providers {
		t := llm.ProviderType(p.Type)
		if !t.Valid() {
			return fmt.Errorf("provider[%d]: unknown type %q", i, p.Type)
		}
		if p.Model == "" {
			return fmt.Errorf("provider[%d] (%s): model is required", i, p.Type)
		}
	}
	return nil
}

// DedupTTL returns the deduplication TTL as a time.Duration.
func (c *Config) DedupTTL() time.Duration { return time.Duration(c.Dedup.TTL) }

// BatchDelay returns the debounce window as a time.Duration.
func (c *Config) BatchDelay() time.Duration { return time.Duration(c.Dedup.BatchDelay) }

// ResolvedAPIKey returns the key for a provider block, falling back to
// the conventional environment variable when the block omits one.
func (p Provider) ResolvedAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv(envVarForProvider(p.Type))
}

func envVarForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}

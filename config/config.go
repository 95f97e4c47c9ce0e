package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/otrenterprises/tiltedtrades/matching"
	"gopkg.in/yaml.v3"
)

// Config represents the complete pipeline configuration
type Config struct {
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Matching  MatchingConfig  `json:"matching" yaml:"matching"`
	Recompute RecomputeConfig `json:"recompute" yaml:"recompute"`
}

// JournalConfig contains store parameters
type JournalConfig struct {
	DBPath   string `json:"db_path" yaml:"db_path"`
	PageSize int    `json:"page_size,omitempty" yaml:"page_size,omitempty"`
}

// MatchingConfig contains matching and commission parameters
type MatchingConfig struct {
	DefaultPolicy   string `json:"default_policy" yaml:"default_policy"`
	CommissionTier  string `json:"commission_tier" yaml:"commission_tier"`
	FeeScheduleFile string `json:"fee_schedule_file,omitempty" yaml:"fee_schedule_file,omitempty"`
}

// RecomputeConfig contains batching and retry parameters
type RecomputeConfig struct {
	BatchSize   int    `json:"batch_size" yaml:"batch_size"`
	MaxAttempts int    `json:"max_attempts" yaml:"max_attempts"`
	BaseDelay   string `json:"base_delay" yaml:"base_delay"` // e.g., "100ms", "1s"
}

// ParseBaseDelay converts the delay string to time.Duration
func (rc RecomputeConfig) ParseBaseDelay() (time.Duration, error) {
	if rc.BaseDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(rc.BaseDelay)
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if c.Journal.PageSize < 0 {
		return fmt.Errorf("journal.page_size must not be negative")
	}
	if !matching.Policy(c.Matching.DefaultPolicy).Valid() {
		return fmt.Errorf("unknown matching.default_policy: %s", c.Matching.DefaultPolicy)
	}
	if c.Matching.CommissionTier == "" {
		return fmt.Errorf("matching.commission_tier is required")
	}
	if c.Recompute.BatchSize <= 0 {
		return fmt.Errorf("recompute.batch_size must be positive")
	}
	if c.Recompute.MaxAttempts <= 0 {
		return fmt.Errorf("recompute.max_attempts must be positive")
	}
	if _, err := c.Recompute.ParseBaseDelay(); err != nil {
		return fmt.Errorf("recompute.base_delay: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Journal: JournalConfig{
			DBPath:   "./tilted.sqlite",
			PageSize: 200,
		},
		Matching: MatchingConfig{
			DefaultPolicy:  string(matching.PolicyFIFO),
			CommissionTier: "fixed",
		},
		Recompute: RecomputeConfig{
			BatchSize:   25,
			MaxAttempts: 5,
			BaseDelay:   "100ms",
		},
	}
}

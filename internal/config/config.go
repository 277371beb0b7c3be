package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main recall configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Brain holds graph storage and algorithm defaults
	Brain BrainConfig `json:"brain" mapstructure:"brain"`

	// Sync configures the bulk entries file
	Sync SyncConfig `json:"sync" mapstructure:"sync"`

	// Maintenance schedules
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// BrainConfig holds graph configuration
type BrainConfig struct {
	DBPath          string       `json:"db_path" mapstructure:"db_path"`
	CacheSize       int          `json:"cache_size" mapstructure:"cache_size"`
	SeedLimit       int          `json:"seed_limit" mapstructure:"seed_limit"`
	SeedsPerToken   int          `json:"seeds_per_token" mapstructure:"seeds_per_token"`
	HebbianStrength float64      `json:"hebbian_strength" mapstructure:"hebbian_strength"`
	Spread          SpreadConfig `json:"spread" mapstructure:"spread"`
	Prune           PruneConfig  `json:"prune" mapstructure:"prune"`
}

// SpreadConfig holds spreading activation defaults
type SpreadConfig struct {
	Depth     int     `json:"depth" mapstructure:"depth"`
	Decay     float64 `json:"decay" mapstructure:"decay"`
	Threshold float64 `json:"threshold" mapstructure:"threshold"`
	Limit     int     `json:"limit" mapstructure:"limit"`
}

// PruneConfig holds synaptic pruning defaults
type PruneConfig struct {
	Decay     float64 `json:"decay" mapstructure:"decay"`
	MinWeight float64 `json:"min_weight" mapstructure:"min_weight"`
}

// SyncConfig holds entries file configuration
type SyncConfig struct {
	File  string `json:"file" mapstructure:"file"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// MaintenanceConfig holds cron expressions for background jobs. Empty disables a job.
type MaintenanceConfig struct {
	PruneSchedule    string `json:"prune_schedule" mapstructure:"prune_schedule"`
	AutoLinkSchedule string `json:"autolink_schedule" mapstructure:"autolink_schedule"`
	AuditFile        string `json:"audit_file" mapstructure:"audit_file"`
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Host    string `json:"host" mapstructure:"host"`
	Port    int    `json:"port" mapstructure:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
	// RedactPatterns are extra regular expressions masked in log output.
	RedactPatterns []string `json:"redact_patterns,omitempty" mapstructure:"redact_patterns"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Brain: BrainConfig{
			CacheSize:       4096,
			SeedLimit:       10,
			SeedsPerToken:   3,
			HebbianStrength: 0.05,
			Spread: SpreadConfig{
				Depth:     2,
				Decay:     0.5,
				Threshold: 0.1,
				Limit:     20,
			},
			Prune: PruneConfig{
				Decay:     0.1,
				MinWeight: 0.15,
			},
		},
		Maintenance: MaintenanceConfig{
			PruneSchedule: "0 3 * * *",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9464,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}
	for i, p := range c.Logging.RedactPatterns {
		if err := v.ValidatePattern(p); err != nil {
			return fmt.Errorf("logging.redact_patterns[%d]: %w", i, err)
		}
	}

	s := c.Brain.Spread
	if s.Depth < 0 {
		return fmt.Errorf("brain.spread.depth must not be negative, got %d", s.Depth)
	}
	if err := v.ValidateFraction("brain.spread.decay", s.Decay); err != nil {
		return err
	}
	if s.Threshold < 0 {
		return fmt.Errorf("brain.spread.threshold must not be negative, got %f", s.Threshold)
	}
	if s.Limit <= 0 {
		return fmt.Errorf("brain.spread.limit must be positive, got %d", s.Limit)
	}

	if err := v.ValidateFraction("brain.prune.decay", c.Brain.Prune.Decay); err != nil {
		return err
	}
	if c.Brain.Prune.MinWeight < 0 {
		return fmt.Errorf("brain.prune.min_weight must not be negative, got %f", c.Brain.Prune.MinWeight)
	}
	if c.Brain.HebbianStrength <= 0 || c.Brain.HebbianStrength > 2 {
		return fmt.Errorf("brain.hebbian_strength must be in (0, 2], got %f", c.Brain.HebbianStrength)
	}
	if c.Brain.SeedLimit <= 0 {
		return fmt.Errorf("brain.seed_limit must be positive, got %d", c.Brain.SeedLimit)
	}

	if err := v.ValidateSchedule(c.Maintenance.PruneSchedule); err != nil {
		return fmt.Errorf("maintenance.prune_schedule: %w", err)
	}
	if err := v.ValidateSchedule(c.Maintenance.AutoLinkSchedule); err != nil {
		return fmt.Errorf("maintenance.autolink_schedule: %w", err)
	}

	if c.Metrics.Enabled {
		if err := v.ValidatePort(c.Metrics.Port); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	if c.Sync.Watch && c.Sync.File == "" {
		return fmt.Errorf("sync.watch requires sync.file")
	}

	return nil
}

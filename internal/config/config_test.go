package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Brain.Spread.Depth)
	assert.Equal(t, 0.5, cfg.Brain.Spread.Decay)
	assert.Equal(t, 0.1, cfg.Brain.Spread.Threshold)
	assert.Equal(t, 0.05, cfg.Brain.HebbianStrength)
	assert.Equal(t, 0.1, cfg.Brain.Prune.Decay)
	assert.Equal(t, 0.15, cfg.Brain.Prune.MinWeight)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "negative depth",
			mutate:  func(c *Config) { c.Brain.Spread.Depth = -1 },
			wantErr: "depth",
		},
		{
			name:    "decay above one",
			mutate:  func(c *Config) { c.Brain.Spread.Decay = 1.5 },
			wantErr: "brain.spread.decay",
		},
		{
			name:    "zero limit",
			mutate:  func(c *Config) { c.Brain.Spread.Limit = 0 },
			wantErr: "limit",
		},
		{
			name:    "prune decay negative",
			mutate:  func(c *Config) { c.Brain.Prune.Decay = -0.1 },
			wantErr: "brain.prune.decay",
		},
		{
			name:    "hebbian strength too large",
			mutate:  func(c *Config) { c.Brain.HebbianStrength = 3 },
			wantErr: "hebbian_strength",
		},
		{
			name:    "zero hebbian strength",
			mutate:  func(c *Config) { c.Brain.HebbianStrength = 0 },
			wantErr: "hebbian_strength",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Maintenance.PruneSchedule = "every day" },
			wantErr: "prune_schedule",
		},
		{
			name: "bad metrics port",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 0
			},
			wantErr: "port",
		},
		{
			name:    "bad redact pattern",
			mutate:  func(c *Config) { c.Logging.RedactPatterns = []string{`ok-\d+`, `(`} },
			wantErr: "logging.redact_patterns[1]",
		},
		{
			name:    "watch without file",
			mutate:  func(c *Config) { c.Sync.Watch = true },
			wantErr: "sync.watch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatorSchedule(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateSchedule(""))
	assert.NoError(t, v.ValidateSchedule("*/5 * * * *"))
	assert.NoError(t, v.ValidateSchedule("@daily"))
	assert.Error(t, v.ValidateSchedule("61 * * * *"))
}

func TestConfigString(t *testing.T) {
	s := DefaultConfig().String()
	assert.True(t, strings.HasPrefix(s, "{"))
	assert.Contains(t, s, `"hebbian_strength"`)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		loader := NewLoader(filepath.Join(tmpDir, "missing.json"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Brain.Spread.Limit)
		assert.NotEmpty(t, cfg.DataDir)
		assert.Equal(t, filepath.Join(cfg.DataDir, "brain.db"), cfg.Brain.DBPath)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "recall.json")

		content := `{
			"data_dir": "` + filepath.ToSlash(tmpDir) + `",
			"brain": {
				"spread": {"depth": 3, "decay": 0.4, "threshold": 0.2, "limit": 7}
			},
			"logging": {"level": "debug"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 3, cfg.Brain.Spread.Depth)
		assert.Equal(t, 0.4, cfg.Brain.Spread.Decay)
		assert.Equal(t, 7, cfg.Brain.Spread.Limit)
		assert.Equal(t, "debug", cfg.Logging.Level)
		// untouched sections keep their defaults
		assert.Equal(t, 0.15, cfg.Brain.Prune.MinWeight)
		assert.Equal(t, filepath.Join(tmpDir, "brain.db"), cfg.Brain.DBPath)
		assert.Equal(t, filepath.Join(tmpDir, "recall.log"), cfg.Logging.File)
	})

	t.Run("invalid json", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "recall.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "recall.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.DataDir = tmpDir
	cfg.Brain.Spread.Depth = 4
	cfg.Maintenance.AutoLinkSchedule = "@weekly"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Brain.Spread.Depth)
	assert.Equal(t, "@weekly", loaded.Maintenance.AutoLinkSchedule)
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "/tmp/x.json", NewLoader("/tmp/x.json").GetConfigPath())
	assert.True(t, strings.HasSuffix(NewLoader("").GetConfigPath(), filepath.Join(".recall", "recall.json")))
}

// Package config loads forager settings from defaults, an optional JSON file,
// FORAGER_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// View names.
const (
	ViewColumn = "column"
	ViewGrid   = "grid"
)

// Config is the resolved application configuration.
type Config struct {
	ServerURL     string        `json:"server_url" mapstructure:"server_url"`
	View          string        `json:"view" mapstructure:"view"` // "column" or "grid"
	ImageHeight   int           `json:"image_height" mapstructure:"image_height"`
	GridCellWidth int           `json:"grid_cell_width" mapstructure:"grid_cell_width"`
	PollInterval  time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	LogLevel      string        `json:"log_level" mapstructure:"log_level"`
	DataDir       string        `json:"data_dir" mapstructure:"data_dir"`
	FocusGuard    bool          `json:"focus_guard" mapstructure:"focus_guard"`
	RateLimit     float64       `json:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
}

// Dir returns ~/.forager.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".forager")
}

// ConfigPath returns the default config file location.
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_url", "http://127.0.0.1:8000")
	v.SetDefault("view", ViewColumn)
	v.SetDefault("image_height", 3)
	v.SetDefault("grid_cell_width", 24)
	v.SetDefault("poll_interval", 3*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", Dir())
	v.SetDefault("focus_guard", false)
	v.SetDefault("rate_limit", 10.0)
}

// Load resolves the configuration. path may be empty to use ConfigPath; a
// missing file is not an error. flags may be nil; only flags the user set
// override lower layers.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = ConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix("FORAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !isKey(key) {
				return
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// keys lists every configuration key.
var keys = []string{
	"server_url", "view", "image_height", "grid_cell_width", "poll_interval",
	"log_level", "data_dir", "focus_guard", "rate_limit",
}

func isKey(k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("config: server_url is empty")
	}
	if c.View != ViewColumn && c.View != ViewGrid {
		return fmt.Errorf("config: view must be %q or %q, got %q", ViewColumn, ViewGrid, c.View)
	}
	if c.ImageHeight < 1 {
		return fmt.Errorf("config: image_height must be positive, got %d", c.ImageHeight)
	}
	if c.GridCellWidth < 8 {
		return fmt.Errorf("config: grid_cell_width must be at least 8, got %d", c.GridCellWidth)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive, got %v", c.PollInterval)
	}
	return nil
}

// DBPath is the SQLite file under DataDir.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "forager.db")
}

// LogPath is the JSONL event log under DataDir.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "forager.jsonl")
}

// Save writes c as JSON to path, creating the directory if needed.
func (c Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out := map[string]any{
		"server_url":      c.ServerURL,
		"view":            c.View,
		"image_height":    c.ImageHeight,
		"grid_cell_width": c.GridCellWidth,
		"poll_interval":   c.PollInterval.String(),
		"log_level":       c.LogLevel,
		"data_dir":        c.DataDir,
		"focus_guard":     c.FocusGuard,
		"rate_limit":      c.RateLimit,
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

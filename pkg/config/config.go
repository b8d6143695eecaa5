package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultSoftwareURL is the published CSV export of the installer sheet.
const DefaultSoftwareURL = "https://docs.google.com/spreadsheets/d/1XU3pUMOnohtXhxOKH0OJqe5nPWOQHwgdl6NDbhPtwD0/gviz/tq?tqx=out:csv&sheet=ArcGIS_DirectDL_Recursive"

// EnvPrefix prefixes environment overrides, e.g. PATCHBROWSER_FEEDS_PATCHES.
const EnvPrefix = "PATCHBROWSER"

// Config represents the patchbrowser configuration
type Config struct {
	// Feed locations and fetch behaviour
	Feeds FeedsConfig `mapstructure:"feeds" yaml:"feeds"`

	// Local web server
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Logging
	Log LogConfig `mapstructure:"log" yaml:"log"`

	// Table rendering
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
}

// FeedsConfig holds the two data sources
type FeedsConfig struct {
	Patches     string        `mapstructure:"patches" yaml:"patches"`           // URL or file path of the patch JSON
	Software    string        `mapstructure:"software" yaml:"software"`         // URL or file path of the installer CSV
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`           // HTTP timeout per fetch
	MinInterval time.Duration `mapstructure:"min-interval" yaml:"min-interval"` // minimum gap between unforced patch reloads
	CacheBust   bool          `mapstructure:"cache-bust" yaml:"cache-bust"`     // append ?t=<millis> to remote fetches
}

// MarshalYAML writes durations in their readable form.
func (f FeedsConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Patches     string `yaml:"patches"`
		Software    string `yaml:"software"`
		Timeout     string `yaml:"timeout"`
		MinInterval string `yaml:"min-interval"`
		CacheBust   bool   `yaml:"cache-bust"`
	}{f.Patches, f.Software, f.Timeout.String(), f.MinInterval.String(), f.CacheBust}, nil
}

// ServerConfig holds settings for `patchbrowser serve`
type ServerConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	OpenBrowser bool   `mapstructure:"open-browser" yaml:"open-browser"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // console, json
}

// DisplayConfig holds table rendering settings
type DisplayConfig struct {
	RenderLimit int `mapstructure:"render-limit" yaml:"render-limit"` // max patch rows rendered, -1 for no cap
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Feeds: FeedsConfig{
			Patches:     "./data/patches.json",
			Software:    DefaultSoftwareURL,
			Timeout:     30 * time.Second,
			MinInterval: 3 * time.Second,
			CacheBust:   true,
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Display: DisplayConfig{
			RenderLimit: 4000,
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Defaults are registered so that env overrides apply to keys absent from the file.
	def := DefaultConfig()
	v.SetDefault("feeds.patches", def.Feeds.Patches)
	v.SetDefault("feeds.software", def.Feeds.Software)
	v.SetDefault("feeds.timeout", def.Feeds.Timeout)
	v.SetDefault("feeds.min-interval", def.Feeds.MinInterval)
	v.SetDefault("feeds.cache-bust", def.Feeds.CacheBust)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.open-browser", def.Server.OpenBrowser)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("display.render-limit", def.Display.RenderLimit)
	return v
}

// Load loads configuration from a YAML file. Environment variables override
// file values. An empty path yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
		}
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w\n\n"+
				"Please check that the file is valid YAML and follows the expected format.\n"+
				"Run 'patchbrowser config init' to write an example configuration.", path, err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("invalid configuration in '%s': %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise fail later at fetch or listen time.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Feeds.Patches) == "" {
		errs = append(errs, errors.New("feeds.patches must not be empty"))
	}
	if strings.TrimSpace(c.Feeds.Software) == "" {
		errs = append(errs, errors.New("feeds.software must not be empty"))
	}
	if c.Feeds.Timeout < 0 {
		errs = append(errs, errors.New("feeds.timeout must not be negative"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Save writes the configuration as YAML, creating parent directories.
func Save(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory '%s': %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file '%s': %w", path, err)
	}
	return nil
}

// FindConfigFile searches for a config file in common locations
// Returns the path to the first config file found, or empty string if none found
func FindConfigFile() string {
	// Check current directory first
	candidates := []string{
		".patchbrowser.yaml",
		".patchbrowser.yml",
	}

	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		for _, candidate := range candidates {
			path := filepath.Join(homeDir, candidate)
			if fileExists(path) {
				return path
			}
		}
	}

	return ""
}

// LoadOrDefault attempts to load a config file, falling back to defaults
func LoadOrDefault() *Config {
	configPath := FindConfigFile()

	config, err := Load(configPath)
	if err != nil {
		// Log the error but return defaults
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", configPath, err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n\n")
		return DefaultConfig()
	}

	return config
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vidsum/internal/history"
	"vidsum/internal/kv"
)

// EnvPrefix is prepended to every environment override, e.g. VIDSUM_API_URL
const EnvPrefix = "VIDSUM"

// Config holds all application configuration
type Config struct {
	// Backend API settings
	APIURL               string
	APITimeout           time.Duration
	RatePerMinute        int
	SummaryRatePerMinute int
	Language             string
	UserAgent            string

	// History storage settings
	StoreBackend string
	StorePath    string
	StoreDSN     string
	StoreKey     string

	// Output locations
	ExportDir string
	AudioDir  string

	// Web UI
	ServeAddr string

	LogLevel string
	Verbose  bool
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		APIURL:               "http://localhost:5001",
		APITimeout:           120 * time.Second,
		RatePerMinute:        30,
		SummaryRatePerMinute: 20,
		Language:             "en",
		UserAgent:            "", // vidsum/<version> unless overridden

		StoreBackend: kv.BackendFile,
		StorePath:    expandHome("~/.vidsum/store.json"),
		StoreKey:     history.DefaultKey,

		ExportDir: ".",
		AudioDir:  expandHome("~/.vidsum/audio"),

		ServeAddr: "127.0.0.1:8080",

		LogLevel: "info",
		Verbose:  false,
	}
}

// SetDefaults registers every key with its default so that env overrides
// and flag bindings resolve
func SetDefaults(v *viper.Viper) {
	d := NewConfig()
	v.SetDefault("api.url", d.APIURL)
	v.SetDefault("api.timeout", d.APITimeout)
	v.SetDefault("api.rate_per_minute", d.RatePerMinute)
	v.SetDefault("api.summary_rate_per_minute", d.SummaryRatePerMinute)
	v.SetDefault("api.language", d.Language)
	v.SetDefault("api.user_agent", d.UserAgent)
	v.SetDefault("store.backend", d.StoreBackend)
	v.SetDefault("store.path", d.StorePath)
	v.SetDefault("store.dsn", d.StoreDSN)
	v.SetDefault("store.key", d.StoreKey)
	v.SetDefault("export.dir", d.ExportDir)
	v.SetDefault("audio.dir", d.AudioDir)
	v.SetDefault("serve.addr", d.ServeAddr)
	v.SetDefault("log.level", d.LogLevel)
	v.SetDefault("verbose", d.Verbose)
}

// Load reads configuration from defaults, an optional config file, and
// VIDSUM_* environment variables, in increasing precedence. Flags bound to v
// win over all of them. An empty file searches $HOME/.vidsum/config.yaml and
// ./vidsum.yaml.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(expandHome("~/.vidsum"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// second chance: ./vidsum.yaml
		if _, statErr := os.Stat("vidsum.yaml"); statErr == nil {
			v.SetConfigFile("vidsum.yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		APIURL:               strings.TrimRight(v.GetString("api.url"), "/"),
		APITimeout:           v.GetDuration("api.timeout"),
		RatePerMinute:        v.GetInt("api.rate_per_minute"),
		SummaryRatePerMinute: v.GetInt("api.summary_rate_per_minute"),
		Language:             v.GetString("api.language"),
		UserAgent:            v.GetString("api.user_agent"),
		StoreBackend:         strings.ToLower(v.GetString("store.backend")),
		StorePath:            expandHome(v.GetString("store.path")),
		StoreDSN:             v.GetString("store.dsn"),
		StoreKey:             v.GetString("store.key"),
		ExportDir:            expandHome(v.GetString("export.dir")),
		AudioDir:             expandHome(v.GetString("audio.dir")),
		ServeAddr:            v.GetString("serve.addr"),
		LogLevel:             v.GetString("log.level"),
		Verbose:              v.GetBool("verbose"),
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	if cfg.StoreBackend == kv.BackendSQLite && cfg.StoreDSN != "" {
		cfg.StoreDSN = expandHome(cfg.StoreDSN)
	}
	return cfg, nil
}

// ConfigFile reports the file v read, or "" when none was found
func ConfigFile(v *viper.Viper) string {
	if f := v.ConfigFileUsed(); f != "" {
		if _, err := os.Stat(f); err == nil {
			return f
		}
	}
	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API URL cannot be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}
	if c.RatePerMinute < 1 || c.SummaryRatePerMinute < 1 {
		return fmt.Errorf("rate limits must be at least 1 request per minute")
	}
	if !slices.Contains(kv.Backends(), c.StoreBackend) {
		return fmt.Errorf("%w %q (use %s)", kv.ErrUnknownBackend, c.StoreBackend, strings.Join(kv.Backends(), ", "))
	}
	switch c.StoreBackend {
	case kv.BackendFile:
		if c.StorePath == "" {
			return fmt.Errorf("store path cannot be empty for the file backend")
		}
	case kv.BackendSQLite, kv.BackendRedis, kv.BackendPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("store DSN is required for the %s backend", c.StoreBackend)
		}
	}
	if c.StoreKey == "" {
		return fmt.Errorf("store key cannot be empty")
	}
	return nil
}

// StoreOptions maps the storage settings onto kv.Options
func (c *Config) StoreOptions() kv.Options {
	return kv.Options{
		Backend: c.StoreBackend,
		Path:    c.StorePath,
		DSN:     c.StoreDSN,
	}
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		return filepath.Join(getHomeDir(), path[1:])
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = os.Getenv

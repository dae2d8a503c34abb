package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/metcalfc/spoon/internal/state"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level spoon configuration.
type Config struct {
	State   StateConfig   `mapstructure:"state" yaml:"state"`
	Segment SegmentConfig `mapstructure:"segment" yaml:"segment"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Serve   ServeConfig   `mapstructure:"serve" yaml:"serve"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// StateConfig picks where books and progress are kept.
type StateConfig struct {
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Backend string `mapstructure:"backend" yaml:"backend"` // "file" or "sqlite"
}

// SegmentConfig controls excerpt size for new imports.
type SegmentConfig struct {
	TargetWords int `mapstructure:"target_words" yaml:"target_words"`
}

// SyncConfig controls how changes from other processes are picked up.
type SyncConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ServeConfig is the browser surface listen address.
type ServeConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Addr returns host:port.
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "spoon", "config.yml")
}

// Path resolves the config file: the explicit path if given, then
// SPOON_CONFIG, then DefaultPath.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("SPOON_CONFIG"); p != "" {
		return p
	}
	return DefaultPath()
}

// Load reads the config from path (see Path), a .env file in the working
// directory and SPOON_* environment variables. A missing file is fine.
func Load(path string) (*Config, error) {
	// optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("state.dir", state.DefaultDir())
	v.SetDefault("state.backend", state.BackendFile)
	v.SetDefault("segment.target_words", 300)
	v.SetDefault("sync.poll_interval", "2s")
	v.SetDefault("serve.host", "127.0.0.1")
	v.SetDefault("serve.port", 7788)
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("SPOON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(Path(path))
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, isCfgNotFound := err.(viper.ConfigFileNotFoundError); !isCfgNotFound {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.State.Dir = ExpandHome(cfg.State.Dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case state.BackendFile, state.BackendSQLite:
	default:
		return fmt.Errorf("state.backend must be %q or %q, got %q", state.BackendFile, state.BackendSQLite, c.State.Backend)
	}
	if c.Segment.TargetWords < 1 {
		return fmt.Errorf("segment.target_words must be positive, got %d", c.Segment.TargetWords)
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be positive, got %s", c.Sync.PollInterval)
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	return nil
}

// Save writes cfg as YAML to path (see Path).
func Save(cfg *Config, path string) error {
	path = Path(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// setters maps each settable key to a function applying a string value.
var setters = map[string]func(c *Config, v string) error{
	"state.dir":     func(c *Config, v string) error { c.State.Dir = ExpandHome(v); return nil },
	"state.backend": func(c *Config, v string) error { c.State.Backend = v; return nil },
	"segment.target_words": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Segment.TargetWords = n
		return err
	},
	"sync.poll_interval": func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.Sync.PollInterval = d
		return err
	},
	"serve.host": func(c *Config, v string) error { c.Serve.Host = v; return nil },
	"serve.port": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Serve.Port = n
		return err
	},
	"log.level": func(c *Config, v string) error { c.Log.Level = v; return nil },
}

// Keys returns the settable keys in order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set applies value to key and validates the result.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

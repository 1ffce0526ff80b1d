// Package config resolves client settings from defaults, a YAML file,
// the environment (.env included) and flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v3"
)

const (
	DefaultEndpoint = "http://localhost:8080/v1/graphql"
	configFileName  = "config.yaml"
	logFileName     = "todo.log"
)

type Config struct {
	Endpoint    string        `yaml:"endpoint"`
	AdminSecret string        `yaml:"admin_secret"`
	Role        string        `yaml:"role"`
	Theme       string        `yaml:"theme"`
	LogFile     string        `yaml:"log_file"`
	LogLevel    string        `yaml:"log_level"`
	RetryMax    int           `yaml:"retry_max"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Dir is where config, credentials and logs live (~/.tada).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tada"), nil
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Theme:    "classic",
		LogFile:  filepath.Join(dir, logFileName),
		LogLevel: "info",
		RetryMax: 0,
		Timeout:  10 * time.Second,
	}
}

// DefaultPath is the YAML file read when no -config flag is given.
func DefaultPath(dir string) string { return filepath.Join(dir, configFileName) }

// LoadDotEnv loads .env files into the process environment.
// Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(string) (string, bool)

// Load starts from Default(dir), applies the YAML file at path and then the
// environment. A missing file is fine unless required is set.
func Load(dir, path string, required bool, lookup LookupFunc) (Config, error) {
	cfg := Default(dir)
	if path == "" {
		path = DefaultPath(dir)
	}
	if err := cfg.applyFile(path, required); err != nil {
		return Config{}, err
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string, required bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup LookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("TADA_ENDPOINT", &c.Endpoint)
	str("TADA_ADMIN_SECRET", &c.AdminSecret)
	str("TADA_ROLE", &c.Role)
	str("TADA_THEME", &c.Theme)
	str("TADA_LOG_FILE", &c.LogFile)
	str("TADA_LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("TADA_RETRY_MAX"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TADA_RETRY_MAX: not a number: %q", v)
		}
		c.RetryMax = n
	}
	if v, ok := lookup("TADA_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports the first invalid setting by key name.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint: must not be empty")
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("endpoint: want http(s) URL, got %q", c.Endpoint)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry_max: must be >= 0, got %d", c.RetryMax)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout: must be > 0, got %s", c.Timeout)
	}
	switch strings.ToLower(c.Theme) {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("theme: unknown theme %q", c.Theme)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL       = "http://127.0.0.1:7400"
	DefaultDBFileName   = ".shopfloor.db"
	DefaultLogLevel     = "info"
	DefaultPollInterval = 30 * time.Second
	DefaultHTTPTimeout  = 10 * time.Second

	configFileName     = ".shopfloor.toml"
	sessionFileName    = ".shopfloor-session.json"
	dotenvFileName     = ".env"
	minPollInterval    = time.Second
	configDirEnvKey    = "SHOPFLOOR_CONFIG_DIR"
	trustProjectEnvKey = "SHOPFLOOR_TRUST_PROJECT_CONFIG"
	envAPIURL          = "SHOPFLOOR_API_URL"
	envDBPath          = "SHOPFLOOR_DB"
	envLogLevel        = "SHOPFLOOR_LOG_LEVEL"
	envPollInterval    = "SHOPFLOOR_POLL_INTERVAL"
	envHTTPTimeout     = "SHOPFLOOR_HTTP_TIMEOUT"
	envSessionFile     = "SHOPFLOOR_SESSION_FILE"
)

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := parsePositiveDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config defines runtime configuration for shopfloor.
type Config struct {
	APIURL                   string   `toml:"api_url"`
	DBPath                   string   `toml:"db_path"`
	LogLevel                 string   `toml:"log_level"`
	SessionFile              string   `toml:"session_file"`
	PollInterval             Duration `toml:"poll_interval"`
	HTTPTimeout              Duration `toml:"http_timeout"`
	TrustedProjectConfigPath string   `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL:       DefaultAPIURL,
		LogLevel:     DefaultLogLevel,
		PollInterval: Duration{DefaultPollInterval},
		HTTPTimeout:  Duration{DefaultHTTPTimeout},
	}
}

func loadFile(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigDir() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return dir, true
}

func trustProjectConfig() bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(trustProjectEnvKey)))
	return err == nil && value
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"log_level",
	"session_file",
	"poll_interval",
	"http_timeout",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "session_file":
		return c.SessionFile, nil
	case "poll_interval":
		return c.PollInterval.String(), nil
	case "http_timeout":
		return c.HTTPTimeout.String(), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if dir, ok := overrideConfigDir(); ok {
		return filepath.Join(dir, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if dir, ok := overrideConfigDir(); ok {
		return filepath.Join(dir, configFileName), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsed, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	data[key] = parsed

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads the global config, a trusted project config, then applies
// .env values and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if dir, ok := overrideConfigDir(); ok {
		if _, err := loadFile(filepath.Join(dir, configFileName), &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if _, err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}
		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				loaded, err := loadFile(projectPath, &cfg)
				if err != nil {
					return nil, err
				}
				if loaded {
					cfg.TrustedProjectConfigPath = projectPath
				}
			}
		}
	}

	dotenv, err := readDotenv()
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(dotenv); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// readDotenv reads .env from the working directory. Real environment
// variables win over its values.
func readDotenv() (map[string]string, error) {
	values, err := godotenv.Read(dotenvFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", dotenvFileName, err)
	}
	return values, nil
}

func (c *Config) applyEnv(dotenv map[string]string) error {
	lookup := func(key string) string {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return strings.TrimSpace(dotenv[key])
	}

	if v := lookup(envAPIURL); v != "" {
		c.APIURL = v
	}
	if v := lookup(envDBPath); v != "" {
		c.DBPath = v
	}
	if v := lookup(envLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := lookup(envSessionFile); v != "" {
		c.SessionFile = v
	}
	if v := lookup(envPollInterval); v != "" {
		d, err := parsePositiveDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envPollInterval, err)
		}
		c.PollInterval = Duration{d}
	}
	if v := lookup(envHTTPTimeout); v != "" {
		d, err := parsePositiveDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envHTTPTimeout, err)
		}
		c.HTTPTimeout = Duration{d}
	}
	return nil
}

func (c *Config) fillDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if c.SessionFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.SessionFile = filepath.Join(home, sessionFileName)
		}
	}
	if c.PollInterval.Duration < minPollInterval {
		c.PollInterval = Duration{DefaultPollInterval}
	}
	if c.HTTPTimeout.Duration <= 0 {
		c.HTTPTimeout = Duration{DefaultHTTPTimeout}
	}
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "poll_interval", "http_timeout":
		d, err := parsePositiveDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return d.String(), nil
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
			return strings.ToLower(value), nil
		}
		return nil, fmt.Errorf("log_level must be one of debug, info, warn, error")
	default:
		return value, nil
	}
}

func parsePositiveDuration(raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription whose events are merged
// into the calendar.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
// PasswordHash (argon2id, see `calgrid hash-password`) wins over Password.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	Password     string `yaml:"password,omitempty" json:"password,omitempty"`
	PasswordHash string `yaml:"password_hash,omitempty" json:"password_hash,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone deciding what "today" is
	// (e.g. "Europe/Berlin"). Empty means the host's local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale selects the language of month/weekday labels (BCP 47, e.g. "de-AT").
	Locale string `yaml:"locale" json:"locale"`

	// SubmitDelayMs is the simulated latency of adding an event.
	SubmitDelayMs int `yaml:"submit_delay_ms" json:"submit_delay_ms"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for re-importing the ICS subscriptions.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the ETag/Last-Modified cache of ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen        = "127.0.0.1:8080"
	defaultLocale        = "en"
	defaultSubmitDelayMs = 200
	defaultRefreshCron   = "*/15 * * * *"
	defaultCacheDir      = "./cache/ics-cache"
	defaultLogLevel      = "info"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		Timezone:      "",
		Locale:        defaultLocale,
		SubmitDelayMs: defaultSubmitDelayMs,
		RefreshCron:   defaultRefreshCron,
		CacheDir:      defaultCacheDir,
		LogLevel:      defaultLogLevel,
		ICS:           []ICSConfig{},
		BasicAuth:     nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	// Zero is a valid delay (no simulated latency); only negatives are reset.
	if c.SubmitDelayMs < 0 {
		c.SubmitDelayMs = defaultSubmitDelayMs
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	switch c.LogLevel {
	case "debug", "info", "error":
		// ok
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

// SubmitDelay returns SubmitDelayMs as a duration.
func (c *Config) SubmitDelay() time.Duration {
	return time.Duration(c.SubmitDelayMs) * time.Millisecond
}

// Location resolves Timezone, falling back to time.Local when it is empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Env variables consulted by ApplyEnv.
const (
	EnvListen      = "CALGRID_LISTEN"
	EnvTimezone    = "CALGRID_TIMEZONE"
	EnvLocale      = "CALGRID_LOCALE"
	EnvSubmitDelay = "CALGRID_SUBMIT_DELAY_MS"
	EnvLogLevel    = "CALGRID_LOG_LEVEL"
)

// LoadDotEnv loads variables from the given .env files (default ".env")
// into the process environment. Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overrides config values with CALGRID_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(EnvLocale); v != "" {
		c.Locale = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSubmitDelay); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvSubmitDelay, err)
		}
		c.SubmitDelayMs = ms
	}
	c.Normalize()
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".calgrid-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

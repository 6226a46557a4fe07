package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Local"
	defaultDatabase     = "/var/lib/monthcal/events.db"
	defaultCacheDir     = "/var/lib/monthcal/ics-cache"
	defaultRefreshCron  = "*/30 * * * *"
	defaultHorizonDays  = 365
	defaultLogLevel     = "info"
	defaultICSCategory  = model.CategoryOther
	defaultMaxExpansion = 1000
)

// ICSConfig describes a single ICS subscription whose events are mirrored
// into the local calendar.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID tags every event imported from this feed.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// Category is applied to imported events that carry no usable
	// CATEGORIES property.
	Category model.Category `yaml:"category" json:"category"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone whose calendar days are used for recurrence,
	// conflict and grid computations. "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Database is the SQLite file holding events.
	Database string `yaml:"database" json:"database"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron schedule for re-syncing ICS subscriptions.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir stores ETag/Last-Modified metadata and bodies of ICS feeds.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// HorizonDays bounds how far ahead subscription rules that cannot be
	// represented natively are expanded into single events.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// MaxExpansion caps the number of single events produced from one
	// subscription rule.
	MaxExpansion int `yaml:"max_expansion" json:"max_expansion"`

	// ICS is the list of subscribed feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       defaultListen,
		Timezone:     defaultTimezone,
		Database:     defaultDatabase,
		LogLevel:     defaultLogLevel,
		RefreshCron:  defaultRefreshCron,
		CacheDir:     defaultCacheDir,
		HorizonDays:  defaultHorizonDays,
		MaxExpansion: defaultMaxExpansion,
		ICS:          []ICSConfig{},
		BasicAuth:    nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Database == "" {
		c.Database = defaultDatabase
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.MaxExpansion <= 0 {
		c.MaxExpansion = defaultMaxExpansion
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		src := &c.ICS[i]
		if src.ID == "" {
			// Fall back to the name, then the URL, so every feed has a
			// stable source tag.
			src.ID = strings.TrimSpace(src.Name)
			if src.ID == "" {
				src.ID = src.URL
			}
		}
		if !src.Category.Valid() {
			src.Category = defaultICSCategory
		}
	}
}

// Location resolves Timezone. Unknown zones fall back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
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
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

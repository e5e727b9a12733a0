// Package config handles the XDG configuration directory, the optional
// config.yaml file in it and derived file paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskmirror"

	// ConfigFile is the optional configuration filename.
	ConfigFile = "config.yaml"

	// DatabaseFile is the default local store filename.
	DatabaseFile = "tasks.db"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// EnvPrefix prefixes environment overrides, e.g. TASKMIRROR_SYNC_TIMEOUT.
	EnvPrefix = "TASKMIRROR"

	DefaultSyncTimeout = 30 * time.Second
	DefaultPageSize    = 20
)

// NotionPropertyKeys lists the keys accepted under notion.properties.
var NotionPropertyKeys = []string{
	"title", "description", "author", "url", "tags", "read", "stocked", "ogp_image",
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// DBPath is the local store location.
	DBPath string

	// LogFile, when set, receives logs instead of stderr.
	LogFile string

	// SyncTimeout bounds a single remote fetch.
	SyncTimeout time.Duration

	// PageSize is the number of items requested per sync.
	PageSize int

	// NotionProperties overrides Notion property names by field key.
	NotionProperties map[string]string
}

// New creates a new Config with the default or specified config directory
// and applies config.yaml from it, if present.
// If configDir is empty, uses XDG_CONFIG_HOME/taskmirror or $HOME/.config/taskmirror.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:              dir,
		DBPath:           filepath.Join(dir, DatabaseFile),
		SyncTimeout:      DefaultSyncTimeout,
		PageSize:         DefaultPageSize,
		NotionProperties: map[string]string{},
	}
	if err := cfg.load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) load() error {
	v := viper.New()
	v.SetConfigFile(c.Path())
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database", c.DBPath)
	v.SetDefault("log_file", "")
	v.SetDefault("sync.timeout", c.SyncTimeout)
	v.SetDefault("sync.page_size", c.PageSize)
	for _, k := range NotionPropertyKeys {
		v.SetDefault("notion.properties."+k, "")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", c.Path(), err)
		}
	}

	c.DBPath = c.resolve(v.GetString("database"))
	if lf := v.GetString("log_file"); lf != "" {
		c.LogFile = c.resolve(lf)
	}

	if t := v.GetDuration("sync.timeout"); t > 0 {
		c.SyncTimeout = t
	}
	if n := v.GetInt("sync.page_size"); n > 0 {
		c.PageSize = n
	}

	for _, k := range NotionPropertyKeys {
		if name := strings.TrimSpace(v.GetString("notion.properties." + k)); name != "" {
			c.NotionProperties[k] = name
		}
	}
	return nil
}

// resolve makes relative paths relative to the config directory.
func (c *Config) resolve(p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Path returns the path to config.yaml.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// OAuthClientPath returns the path to the Google OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored Google OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

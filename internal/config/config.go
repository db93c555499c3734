package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the folio configuration
type Config struct {
	DataDir            string `mapstructure:"data_dir" yaml:"data_dir"`
	Bind               string `mapstructure:"bind" yaml:"bind"`
	CascadeAnnotations bool   `mapstructure:"cascade_annotations" yaml:"cascade_annotations"`
	RecentLimit        int    `mapstructure:"recent_limit" yaml:"recent_limit"`
	GinMode            string `mapstructure:"gin_mode" yaml:"gin_mode"`
}

// DatabasePath is the SQLite file inside the data directory
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "folio.db")
}

// Load reads the config from path (or $FOLIO_CONFIG) and the environment.
// A missing config file is fine: defaults and FOLIO_* variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "./data")
	v.SetDefault("bind", "127.0.0.1:8080")
	v.SetDefault("cascade_annotations", false)
	v.SetDefault("recent_limit", 6)
	v.SetDefault("gin_mode", "release")

	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("FOLIO_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(ExpandHome(path))
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.DataDir = ExpandHome(cfg.DataDir)
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 6
	}
	return &cfg, nil
}

// WriteYAML renders the effective configuration
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// ExpandHome expands a leading ~/ in a path
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/flowstream/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable bound by InitViper.
const EnvPrefix = "FLOWSTREAM"

// envAliases binds config keys to the unprefixed environment variables that
// deployments already set. The prefixed variable wins when both are set.
var envAliases = map[string][]string{
	"stream.timeout_seconds":      {"STREAM_TIMEOUT_SECONDS"},
	"app.env":                     {"APP_ENV"},
	"app.frontend_url":            {"FRONTEND_URL"},
	"engine.basic_model.base_url": {"BASIC_MODEL__BASE_URL"},
	"engine.basic_model.model":    {"BASIC_MODEL__MODEL"},
	"engine.basic_model.api_key":  {"BASIC_MODEL__API_KEY"},
}

// InitViper creates and returns a configured *viper.Viper.
// It loads .env files, sets defaults from NewDefaultConfig(), reads the
// config.toml file (if found via dotdir resolution), and binds environment
// variables with the FLOWSTREAM_ prefix plus the legacy aliases.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FLOWSTREAM_SERVER_LISTEN, STREAM_TIMEOUT_SECONDS, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	v.AddConfigPath(target)

	if err := LoadDotEnv(".env", filepath.Join(target, ".env")); err != nil {
		return nil, err
	}

	if err := ReadConfig(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envName(key)}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	// PORT is what hosting platforms hand out; it only carries the port.
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return nil, fmt.Errorf("binding env for server.port: %w", err)
	}

	return v, nil
}

// ReadConfig (re)reads config.toml into v. A missing file is not an error.
func ReadConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// LoadDotEnv loads each .env file that exists. Variables already present in
// the environment are left untouched.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// FromViper resolves the effective Config from every layer bound in v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	for key, info := range configKeys {
		var raw string
		if key == "app.cors_origins" {
			raw = strings.Join(v.GetStringSlice(key), ",")
		} else {
			raw = v.GetString(key)
		}
		if raw == "" {
			continue
		}
		if err := info.set(cfg, raw); err != nil {
			return nil, err
		}
	}

	if port := v.GetString("server.port"); port != "" {
		cfg.Server.Listen = ":" + strings.TrimPrefix(port, ":")
	}

	return cfg, nil
}

// StreamTimeout is the supervisor timeout configured in cfg.
func (c *Config) StreamTimeout() time.Duration {
	return time.Duration(c.Stream.TimeoutSeconds) * time.Second
}

// ShutdownGrace is the producer unwind grace configured in cfg.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Stream.ShutdownGraceSeconds) * time.Second
}

// MCPTimeout is the default MCP metadata lookup timeout.
func (c *Config) MCPTimeout() time.Duration {
	return time.Duration(c.MCP.TimeoutSeconds) * time.Second
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for key, info := range configKeys {
		v.SetDefault(key, info.get(d))
	}
	v.SetDefault("app.cors_origins", d.App.CORSOrigins)
}
